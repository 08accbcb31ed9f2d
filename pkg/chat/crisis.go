package chat

import "strings"

// crisisKeywords are matched as case-insensitive substrings. The list is
// deliberately broad; a false positive costs one resource message, a false
// negative costs a lot more.
var crisisKeywords = []string{
	"suicide",
	"suicidal",
	"kill myself",
	"want to die",
	"end my life",
	"hurt myself",
	"harm myself",
	"self harm",
	"self-harm",
	"crisis",
	"emergency",
	"end it all",
	"end it",
	"no reason to live",
	"better off without me",
}

const crisisResourceText = `I'm really concerned about what you just shared. You deserve support right now, and there are people ready to help immediately:

- 988 Suicide & Crisis Lifeline: call or text 988 (24/7)
- Crisis Text Line: text HOME to 741741
- If you're in immediate danger, call 911

You don't have to go through this alone. Would you consider reaching out to one of these right now? I'm still here with you.`

// IsCrisis reports whether the message contains a crisis keyword. It never
// mutates conversation state.
func IsCrisis(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range crisisKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// CrisisResponse is the fixed resource message returned on crisis turns.
func CrisisResponse() string {
	return crisisResourceText
}
