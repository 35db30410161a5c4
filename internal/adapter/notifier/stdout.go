package notifier

import (
	"context"
	"fmt"
)

// StdoutNotifier is an implementation of domain.Notifier that prints to
// standard output, for local development.
type StdoutNotifier struct{}

// NewStdoutNotifier creates a new StdoutNotifier.
func NewStdoutNotifier() *StdoutNotifier {
	return &StdoutNotifier{}
}

// Notify prints the notification to stdout.
func (n *StdoutNotifier) Notify(ctx context.Context, recipientID, title, body string, data map[string]string) error {
	fmt.Printf(
		"--- ALERT ---\nRecipient: %s\nTitle: %s\n%s-------------\n",
		recipientID,
		title,
		body,
	)
	return nil
}
