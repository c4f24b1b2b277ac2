package email

import (
	"context"
	"time"
)

// SendRequest contains the data needed to send an email via an external provider.
type SendRequest struct {
	To      []string `json:"to"`             // Recipient email addresses
	From    string   `json:"from,omitempty"` // Sender address (e.g. "Fine Club <fines@example.com>"); empty uses the sender default
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`              // HTML body
	ReplyTo string   `json:"replyTo,omitempty"` // Reply-to address
}

// SendResult contains the response from the email provider.
type SendResult struct {
	MessageID string    // Provider's message ID for tracking
	SentAt    time.Time // When the send was accepted
}

// Sender is the interface for sending emails via an external provider.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
	SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error)
}
