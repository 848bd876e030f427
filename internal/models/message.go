package models

// InboundMessage is the payload delivered by the webhook transport after its own
// signature verification. The dispatcher never re-validates transport authenticity.
type InboundMessage struct {
	UserID     string `json:"user_id"`
	Message    string `json:"message"`
	ReplyToken string `json:"reply_token,omitempty"`
}

// DispatchResult is what the dispatcher returns for one inbound message.
// When NeedsExternalReply is true the caller owns the generation call: it sends
// ReplyText only after obtaining a generated reply (Context carries any retrieved
// records to include in the prompt).
type DispatchResult struct {
	ReplyText          string `json:"reply_text"`
	NeedsExternalReply bool   `json:"needs_external_reply"`
	Context            string `json:"context,omitempty"`
	Handled            bool   `json:"handled"`
}
