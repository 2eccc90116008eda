package mailer

import (
	"context"
	"fmt"

	"github.com/garagelink/drivescan/pkg/config"
	"github.com/garagelink/drivescan/pkg/notifx"
)

// Template names registered on the notification client.
const (
	templateWelcome   = "welcome"
	templateLowCredit = "low_credit"
)

const welcomeTemplate = `Hi {{.Name}},

Welcome to DriveScan. Your account is ready: upload a VCDS scan to get your
first diagnostic analysis.

The DriveScan team
`

const lowCreditTemplate = `Hi {{.Name}},

Your analysis credit balance is down to {{.Balance}}. Top up to keep
analyzing scans without interruption.

The DriveScan team
`

// Mailer sends the product's transactional emails. It satisfies the notifier
// ports of the identity and billing services.
type Mailer struct {
	client *notifx.Client
	from   string
}

// New creates a mailer and registers its templates.
func New(client *notifx.Client, cfg config.EmailConfig) (*Mailer, error) {
	if err := client.RegisterTemplate(templateWelcome, welcomeTemplate); err != nil {
		return nil, err
	}
	if err := client.RegisterTemplate(templateLowCredit, lowCreditTemplate); err != nil {
		return nil, err
	}
	return &Mailer{
		client: client,
		from:   fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress),
	}, nil
}

// SendWelcome sends the post-registration email.
func (m *Mailer) SendWelcome(ctx context.Context, email, name string) error {
	return m.client.SendTemplatedEmail(ctx, templateWelcome,
		map[string]any{"Name": name},
		notifx.EmailMessage{
			From:    m.from,
			To:      []string{email},
			Subject: "Welcome to DriveScan",
		})
}

// SendLowCredit warns a user that their balance is nearly spent.
func (m *Mailer) SendLowCredit(ctx context.Context, email, name string, balance int64) error {
	return m.client.SendTemplatedEmail(ctx, templateLowCredit,
		map[string]any{"Name": name, "Balance": balance},
		notifx.EmailMessage{
			From:    m.from,
			To:      []string{email},
			Subject: "Your DriveScan credits are running low",
		})
}
