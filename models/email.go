package models

import (
	"time"
)

// Email represents a single email message
type Email struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	Sender      string    `json:"sender"`
	SenderName  string    `json:"sender_name"`
	Recipients  []string  `json:"recipients"`
	Cc          []string  `json:"cc"`
	Body        string    `json:"body"`
	ThreadID    string    `json:"thread_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Attachments []string  `json:"attachments"`
	IsRead      bool      `json:"is_read"`
}

// Normalize fills in defaults for fields the sender may omit. The
// timestamp defaults to the moment of creation.
func (e *Email) Normalize() {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Recipients == nil {
		e.Recipients = []string{}
	}
	if e.Cc == nil {
		e.Cc = []string{}
	}
	if e.Attachments == nil {
		e.Attachments = []string{}
	}
}

// Validate checks that the email carries enough identity to be placed
// into a thread.
func (e *Email) Validate() error {
	if e.ID == "" {
		return ErrMissingID
	}
	if e.Sender == "" {
		return ErrMissingSender
	}
	return nil
}
