package model

import "time"

// Message is a scheduled email. The store owns id, created_at and the sent
// flag; callers only control the recipient, body and send time.
type Message struct {
	ID        string     `json:"id"`
	Email     string     `json:"email" binding:"required"`
	Body      *string    `json:"message_body"`
	CreatedAt *time.Time `json:"created_at"`
	SendAt    *time.Time `json:"send_at"`
	Sent      bool       `json:"send"`
}

// Clone returns a deep copy so no caller can alias the store's records.
func (m Message) Clone() Message {
	out := m
	if m.Body != nil {
		body := *m.Body
		out.Body = &body
	}
	if m.CreatedAt != nil {
		createdAt := *m.CreatedAt
		out.CreatedAt = &createdAt
	}
	if m.SendAt != nil {
		sendAt := *m.SendAt
		out.SendAt = &sendAt
	}
	return out
}

// IsDue reports whether the message should be delivered at now.
func (m Message) IsDue(now time.Time) bool {
	if m.Sent || m.SendAt == nil {
		return false
	}
	return !m.SendAt.After(now)
}

// BodyText returns the body or an empty string when none was given.
func (m Message) BodyText() string {
	if m.Body == nil {
		return ""
	}
	return *m.Body
}
