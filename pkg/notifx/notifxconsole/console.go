package notifxconsole

import (
	"context"
	"strings"

	"github.com/garagelink/drivescan/pkg/logx"
	"github.com/garagelink/drivescan/pkg/notifx"
)

// ConsoleProvider prints emails via logx instead of sending them. Intended
// for development and testing.
type ConsoleProvider struct{}

// NewConsoleProvider creates a new console email provider.
func NewConsoleProvider() *ConsoleProvider {
	return &ConsoleProvider{}
}

// SendEmail logs the email details instead of sending it.
func (p *ConsoleProvider) SendEmail(_ context.Context, msg notifx.EmailMessage) error {
	logx.WithFields(logx.Fields{
		"from":    msg.From,
		"to":      strings.Join(msg.To, ", "),
		"subject": msg.Subject,
	}).Info("notifx/console: email sent (dev mode)")

	if msg.TextBody != "" {
		logx.Debugf("notifx/console: body:\n%s", msg.TextBody)
	}
	return nil
}
