package chat

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/havenlabs/haven/pkg/memory"
)

// Extraction rules are independent and best-effort: one message may yield
// several candidates, and a rule whose capture falls outside its length
// bounds silently yields nothing.
var (
	nameStatementRegex = regexp.MustCompile(`(?i)\b(?:my name(?:'s| is)|call me|i go by)\s+([A-Za-z][A-Za-z \-']{0,38})`)
	nameFillerRegex    = regexp.MustCompile(`(?i)^(?:hi|hey|hello)?[,!. ]*\s*(?:my name(?:'s| is)|i'?m|i am|call me|it'?s|this is|name'?s)\s+`)

	occupationRegex = regexp.MustCompile(`(?i)\b(?:work as an?|work as|i'?m an?|i am an?|employed as an?|employed as|my job is)\s+([^.!?,\n]+)`)
	hobbyRegex      = regexp.MustCompile(`(?i)\b(?:i (?:really )?(?:like|love|enjoy)|i'?m (?:really )?into|my hobby is|my hobbies are)\s+([^.!?\n]+)`)
	concernRegex    = regexp.MustCompile(`(?i)\b(?:struggling with|struggle with|dealing with|my problem is|having problems with|find it difficult to|it'?s been difficult)\s*([^.!?\n]*)`)
	goalRegex       = regexp.MustCompile(`(?i)\b(?:i want to|i'?m trying to|i'?m hoping to|want to|trying to|hoping to)\s+([^.!?\n]+)`)
	preferenceRegex = regexp.MustCompile(`(?i)\b(?:i prefer|it helps me to|helps me|calms me)\s+([^.!?\n]+)`)
	familyRegex     = regexp.MustCompile(`(?i)\bmy (mom|mother|dad|father|sister|brother|son|daughter|wife|husband|partner|grandma|grandmother|grandpa|grandfather)\b(?:\s+(?:is|was|has|named)\s+([^.!?\n]+))?`)
)

// Extractor derives candidate memories from raw utterances. Timestamped key
// suffixes let repeated disclosures in different turns accumulate as
// distinct records; now is injectable for tests.
type Extractor struct {
	now func() time.Time
}

func NewExtractor() *Extractor {
	return &Extractor{now: time.Now}
}

// Extract applies every rule against the message. previousQuestion biases
// the name rule: when the companion just asked for a name, the whole reply
// is treated as one after stripping filler lead-ins.
func (e *Extractor) Extract(message, previousQuestion string) []memory.Candidate {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}

	var out []memory.Candidate
	seen := map[string]struct{}{}
	add := func(c memory.Candidate) {
		if _, ok := seen[c.Key]; ok {
			return
		}
		seen[c.Key] = struct{}{}
		out = append(out, c)
	}

	suffix := e.now().UnixNano()
	nextKey := func(prefix string) string {
		key := fmt.Sprintf("%s_%d", prefix, suffix)
		suffix++
		return key
	}

	if name := e.extractName(message, previousQuestion); name != "" {
		add(memory.Candidate{
			Type:       memory.MemoryFact,
			Key:        "name",
			Value:      name,
			Importance: 5,
		})
	}

	if m := occupationRegex.FindStringSubmatch(message); len(m) > 1 {
		role := trimPhrase(cutAtConjunction(m[1]))
		// The "I'm a ..." form also matches moods ("I'm a bit tired");
		// the length bound keeps most of those out.
		if role != "" && len(role) <= 40 {
			add(memory.Candidate{
				Type:       memory.MemoryFact,
				Key:        "occupation",
				Value:      role,
				Importance: 4,
			})
		}
	}

	for _, m := range hobbyRegex.FindAllStringSubmatch(message, -1) {
		phrase := trimPhrase(m[1])
		if len(phrase) >= 2 && len(phrase) <= 50 {
			add(memory.Candidate{
				Type:       memory.MemoryInterest,
				Key:        nextKey("hobby"),
				Value:      phrase,
				Importance: 3,
			})
		}
	}

	for _, m := range concernRegex.FindAllStringSubmatch(message, -1) {
		phrase := trimPhrase(m[1])
		if phrase != "" && len(phrase) < 50 {
			add(memory.Candidate{
				Type:       memory.MemoryConcern,
				Key:        nextKey("concern"),
				Value:      phrase,
				Context:    message,
				Importance: 5,
			})
		}
	}

	for _, m := range goalRegex.FindAllStringSubmatch(message, -1) {
		phrase := trimPhrase(m[1])
		if phrase != "" && len(phrase) < 50 {
			add(memory.Candidate{
				Type:       memory.MemoryGoal,
				Key:        nextKey("goal"),
				Value:      phrase,
				Importance: 4,
			})
		}
	}

	for _, m := range preferenceRegex.FindAllStringSubmatch(message, -1) {
		phrase := trimPhrase(m[1])
		if phrase != "" && len(phrase) < 40 {
			add(memory.Candidate{
				Type:       memory.MemoryPreference,
				Key:        nextKey("preference"),
				Value:      phrase,
				Importance: 4,
			})
		}
	}

	for _, m := range familyRegex.FindAllStringSubmatch(message, -1) {
		relation := strings.ToLower(m[1])
		detail := trimPhrase(m[2])
		if detail == "" {
			detail = "mentioned"
		}
		if len(detail) >= 2 && len(detail) <= 30 {
			add(memory.Candidate{
				Type:       memory.MemoryFact,
				Key:        "family_" + relation,
				Value:      detail,
				Importance: 4,
			})
		}
	}

	return out
}

// extractName returns a plausible name or "". ExtractName on the raw reply
// is also what the stage controller uses while learning a name.
func (e *Extractor) extractName(message, previousQuestion string) string {
	if m := nameStatementRegex.FindStringSubmatch(message); len(m) > 1 {
		return cleanName(m[1])
	}

	prev := strings.ToLower(previousQuestion)
	if strings.Contains(prev, "name") || strings.Contains(prev, "call you") {
		candidate := nameFillerRegex.ReplaceAllString(message, "")
		return cleanName(candidate)
	}

	return ""
}

// ExtractName is the name rule alone, biased as if the name question was
// just asked.
func (e *Extractor) ExtractName(message string) string {
	return e.extractName(message, "What's your name?")
}

func cleanName(raw string) string {
	raw = strings.Trim(strings.TrimSpace(raw), ".,!?\"'")
	if raw == "" || len(raw) >= 30 || strings.ContainsAny(raw, "\n") {
		return ""
	}
	// Keep at most two words; replies often trail off into a sentence.
	words := strings.Fields(raw)
	if len(words) > 2 {
		words = words[:2]
	}
	return strings.Join(words, " ")
}

func trimPhrase(in string) string {
	in = strings.TrimSpace(in)
	return strings.Trim(in, " .,!?:;\"'")
}

var conjunctionRegex = regexp.MustCompile(`(?i)\s+(?:and|but|so|because)\s.*$`)

// cutAtConjunction keeps only the clause before a coordinating conjunction,
// so "a teacher and I love hiking" extracts as "a teacher".
func cutAtConjunction(in string) string {
	return conjunctionRegex.ReplaceAllString(in, "")
}
