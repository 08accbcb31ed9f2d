package chat

import "strings"

// Sentiment buckets for the exchange log.
const (
	SentimentAnxious  = "anxious"
	SentimentSad      = "sad"
	SentimentPositive = "positive"
	SentimentStressed = "stressed"
	SentimentNeutral  = "neutral"
)

var sentimentBuckets = []struct {
	label    string
	keywords []string
}{
	{SentimentAnxious, []string{"anxious", "anxiety", "nervous", "panic", "worried", "worry", "scared", "afraid"}},
	{SentimentSad, []string{"sad", "down", "depressed", "lonely", "cry", "crying", "miserable", "hopeless"}},
	{SentimentPositive, []string{"happy", "great", "good", "excited", "wonderful", "amazing", "grateful", "better"}},
	{SentimentStressed, []string{"stress", "stressed", "overwhelmed", "exhausted", "burned out", "burnt out", "too much"}},
}

// ClassifySentiment buckets a message by keyword; first bucket wins.
func ClassifySentiment(message string) string {
	lower := strings.ToLower(message)
	for _, bucket := range sentimentBuckets {
		for _, kw := range bucket.keywords {
			if strings.Contains(lower, kw) {
				return bucket.label
			}
		}
	}
	return SentimentNeutral
}

var topicBuckets = []struct {
	label    string
	keywords []string
}{
	{"work_school", []string{"work", "job", "boss", "coworker", "school", "class", "study", "exam", "career"}},
	{"relationships", []string{"friend", "family", "partner", "relationship", "mom", "dad", "wife", "husband", "boyfriend", "girlfriend", "marriage"}},
	{"health", []string{"health", "sleep", "tired", "doctor", "sick", "pain", "eating", "exercise"}},
}

// ClassifyTopics returns every matching topic bucket, or nil when none
// match.
func ClassifyTopics(message string) []string {
	lower := strings.ToLower(message)
	var out []string
	for _, bucket := range topicBuckets {
		for _, kw := range bucket.keywords {
			if strings.Contains(lower, kw) {
				out = append(out, bucket.label)
				break
			}
		}
	}
	return out
}
