package models

import (
	"errors"
	"sort"
	"time"
)

var (
	// ErrMissingID indicates an email without an identifier.
	ErrMissingID = errors.New("email is missing an id")
	// ErrMissingSender indicates an email without a sender address.
	ErrMissingSender = errors.New("email is missing a sender")
)

// EmailThread represents one logical email conversation. Messages are
// kept sorted ascending by timestamp; the subject is set once from the
// first email that carries one and never overwritten.
type EmailThread struct {
	ID           string       `json:"id"`
	Subject      string       `json:"subject"`
	Participants []string     `json:"participants"`
	Messages     []*Email     `json:"messages"`
	LastUpdated  time.Time    `json:"last_updated"`
}

// NewEmailThread creates an empty thread. A thread with zero messages
// is valid and means "no context yet".
func NewEmailThread(id, subject string) *EmailThread {
	return &EmailThread{
		ID:           id,
		Subject:      subject,
		Participants: []string{},
		Messages:     []*Email{},
	}
}

// AddEmail appends an email to the thread, re-sorts the messages by
// timestamp, and refreshes the participant set and last-updated time.
// Emails are never removed.
func (t *EmailThread) AddEmail(email *Email) {
	t.Messages = append(t.Messages, email)
	sort.SliceStable(t.Messages, func(i, j int) bool {
		return t.Messages[i].Timestamp.Before(t.Messages[j].Timestamp)
	})
	t.LastUpdated = time.Now()

	if t.Subject == "" && email.Subject != "" {
		t.Subject = email.Subject
	}

	t.addParticipant(email.Sender)
	for _, r := range email.Recipients {
		t.addParticipant(r)
	}
}

// MessageCount returns the number of emails in the thread.
func (t *EmailThread) MessageCount() int {
	return len(t.Messages)
}

// Senders returns the distinct sender addresses in first-seen order.
func (t *EmailThread) Senders() []string {
	seen := make(map[string]bool)
	senders := []string{}
	for _, m := range t.Messages {
		if m.Sender != "" && !seen[m.Sender] {
			seen[m.Sender] = true
			senders = append(senders, m.Sender)
		}
	}
	return senders
}

// addParticipant records an address if it has not been seen before,
// preserving insertion order.
func (t *EmailThread) addParticipant(addr string) {
	if addr == "" {
		return
	}
	for _, p := range t.Participants {
		if p == addr {
			return
		}
	}
	t.Participants = append(t.Participants, addr)
}
