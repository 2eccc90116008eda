package notifx

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"text/template"

	"github.com/garagelink/drivescan/pkg/errx"
)

// EmailMessage represents an email to be sent.
type EmailMessage struct {
	From     string   `json:"from"`
	To       []string `json:"to"`
	ReplyTo  string   `json:"reply_to,omitempty"`
	Subject  string   `json:"subject"`
	TextBody string   `json:"text_body,omitempty"`
	HTMLBody string   `json:"html_body,omitempty"`
}

// EmailSender sends a single email.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

var notifxErrors = errx.NewRegistry("NOTIFX")

var (
	ErrSendFailed       = notifxErrors.Register("SEND_FAILED", errx.TypeExternal, http.StatusBadGateway, "Failed to send email")
	ErrInvalidMessage   = notifxErrors.Register("INVALID_MESSAGE", errx.TypeValidation, http.StatusBadRequest, "Invalid email message")
	ErrTemplateNotFound = notifxErrors.Register("TEMPLATE_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Email template not found")
	ErrTemplateInvalid  = notifxErrors.Register("TEMPLATE_INVALID", errx.TypeInternal, http.StatusInternalServerError, "Email template failed to parse or render")
)

// Registry returns the notifx error registry, mainly for provider packages.
func Registry() *errx.Registry { return notifxErrors }

// Client sends plain and templated emails through a configured provider.
type Client struct {
	provider  EmailSender
	mu        sync.RWMutex
	templates map[string]*template.Template
}

// NewClient creates a notification client.
func NewClient(provider EmailSender) *Client {
	return &Client{
		provider:  provider,
		templates: make(map[string]*template.Template),
	}
}

// SendEmail sends an email through the configured provider.
func (c *Client) SendEmail(ctx context.Context, msg EmailMessage) error {
	if len(msg.To) == 0 {
		return notifxErrors.New(ErrInvalidMessage).WithDetail("reason", "no recipients")
	}
	if msg.Subject == "" {
		return notifxErrors.New(ErrInvalidMessage).WithDetail("reason", "empty subject")
	}
	return c.provider.SendEmail(ctx, msg)
}

// RegisterTemplate parses and stores a named template for later use.
func (c *Client) RegisterTemplate(name, tmplString string) error {
	t, err := template.New(name).Parse(tmplString)
	if err != nil {
		return notifxErrors.NewWithCause(ErrTemplateInvalid, err).WithDetail("template", name)
	}

	c.mu.Lock()
	c.templates[name] = t
	c.mu.Unlock()
	return nil
}

// SendTemplatedEmail renders a registered template into the text body and sends it.
func (c *Client) SendTemplatedEmail(ctx context.Context, templateName string, data any, msg EmailMessage) error {
	c.mu.RLock()
	t, ok := c.templates[templateName]
	c.mu.RUnlock()

	if !ok {
		return notifxErrors.New(ErrTemplateNotFound).WithDetail("template", templateName)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return notifxErrors.NewWithCause(ErrTemplateInvalid, err).WithDetail("template", templateName)
	}

	msg.TextBody = buf.String()
	return c.SendEmail(ctx, msg)
}
