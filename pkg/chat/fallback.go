package chat

import (
	"math/rand"

	"github.com/havenlabs/haven/pkg/memory"
)

// Fallback is the deterministic responder used when every provider has
// failed. It never touches the network: crisis screening runs first and
// short-circuits with no state change, otherwise the shared stage logic
// picks the reply and state delta. rng only feeds the phrasing pools, so a
// seeded source makes output reproducible.
func Fallback(message string, state memory.ConversationState, memories []memory.Memory, rng *rand.Rand) (string, memory.ConversationState) {
	if IsCrisis(message) {
		return CrisisResponse(), state
	}

	outcome := Advance(state, message, memories, rng)
	return outcome.Reply, outcome.Next
}
