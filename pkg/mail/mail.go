package mail

import (
	"context"
	"errors"
	"strings"
)

// ErrNoRecipient is returned for messages without a destination address.
var ErrNoRecipient = errors.New("mail: message has no recipient")

// Message is a single outbound email.
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Validate checks the minimal fields every provider needs.
func (m Message) Validate() error {
	if strings.TrimSpace(m.ToEmail) == "" {
		return ErrNoRecipient
	}
	if m.Text == "" && m.HTML == "" {
		return errors.New("mail: message has no content")
	}
	return nil
}

// Sender delivers a message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
