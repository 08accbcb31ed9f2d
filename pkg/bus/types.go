package bus

// InboundMessage is one user utterance arriving from a channel, headed
// for the companion gateway.
type InboundMessage struct {
	Channel    string
	SenderID   string
	ChatID     string
	Content    string
	SessionKey string
	Metadata   map[string]string
}

// OutboundMessage is one companion reply headed back to a channel.
type OutboundMessage struct {
	Channel string
	ChatID  string
	Content string
}
