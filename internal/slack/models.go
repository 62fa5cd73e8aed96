package slack

// Ack is Slack's acknowledgment of a posted message
type Ack struct {
	Channel   string `json:"channel"`
	Timestamp string `json:"ts"`
	Text      string `json:"text"`
}
