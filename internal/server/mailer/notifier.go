// Package mailer delivers the account emails: activation and reset links,
// email-change confirmations and security notices.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

// Notifier sends account emails. Delivery failures are returned to the caller.
type Notifier interface {
	SendActivationLink(ctx context.Context, email, token string) error
	SendResetPasswordLink(ctx context.Context, email, token string) error
	SendPasswordChangedNotification(ctx context.Context, email string) error
	SendAttemptToChangeEmail(ctx context.Context, oldEmail, newEmail string) error
	SendChangeEmailConfirmation(ctx context.Context, newEmail, token string) error
	SendEmailChangedNotification(ctx context.Context, oldEmail, newEmail string) error
}

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Message is a rendered email ready for a transport.
type Message struct {
	To      string
	Subject string
	HTML    string
	// Link is the action link embedded in the body, if any.
	Link string
}

type templateData struct {
	Link     string
	NewEmail string
}

// Composer renders the messages and builds links against the client URL.
type Composer struct {
	clientURL string
}

func NewComposer(clientURL string) *Composer {
	return &Composer{clientURL: strings.TrimRight(clientURL, "/")}
}

func (c *Composer) link(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.clientURL + "/" + strings.Join(escaped, "/")
}

func render(name string, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (c *Composer) compose(to, subject, tmpl string, data templateData) (Message, error) {
	body, err := render(tmpl, data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject, HTML: body, Link: data.Link}, nil
}

func (c *Composer) Activation(email, token string) (Message, error) {
	link := c.link("auth", "activate", email, token)
	return c.compose(email, "Account activation", "activation.html", templateData{Link: link})
}

func (c *Composer) ResetPassword(email, token string) (Message, error) {
	link := c.link("auth", "reset-password", token)
	return c.compose(email, "Reset password", "reset_password.html", templateData{Link: link})
}

func (c *Composer) PasswordChanged(email string) (Message, error) {
	return c.compose(email, "Password changed", "password_changed.html", templateData{})
}

func (c *Composer) EmailChangeAttempt(oldEmail, newEmail string) (Message, error) {
	return c.compose(oldEmail, "Attempt to change email", "email_change_attempt.html", templateData{NewEmail: newEmail})
}

func (c *Composer) EmailChangeConfirmation(newEmail, token string) (Message, error) {
	link := c.link("profile", "change-email", token)
	return c.compose(newEmail, "Change email confirmation", "email_change_confirm.html", templateData{Link: link})
}

func (c *Composer) EmailChanged(oldEmail, newEmail string) (Message, error) {
	return c.compose(oldEmail, "Email changed", "email_changed.html", templateData{NewEmail: newEmail})
}

// Transport delivers one rendered message.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer implements Notifier on top of a Composer and a Transport.
type Mailer struct {
	composer  *Composer
	transport Transport
}

func New(clientURL string, transport Transport) *Mailer {
	return &Mailer{composer: NewComposer(clientURL), transport: transport}
}

func (m *Mailer) deliver(ctx context.Context, msg Message, err error) error {
	if err != nil {
		return err
	}
	return m.transport.Send(ctx, msg)
}

func (m *Mailer) SendActivationLink(ctx context.Context, email, token string) error {
	msg, err := m.composer.Activation(email, token)
	return m.deliver(ctx, msg, err)
}

func (m *Mailer) SendResetPasswordLink(ctx context.Context, email, token string) error {
	msg, err := m.composer.ResetPassword(email, token)
	return m.deliver(ctx, msg, err)
}

func (m *Mailer) SendPasswordChangedNotification(ctx context.Context, email string) error {
	msg, err := m.composer.PasswordChanged(email)
	return m.deliver(ctx, msg, err)
}

func (m *Mailer) SendAttemptToChangeEmail(ctx context.Context, oldEmail, newEmail string) error {
	msg, err := m.composer.EmailChangeAttempt(oldEmail, newEmail)
	return m.deliver(ctx, msg, err)
}

func (m *Mailer) SendChangeEmailConfirmation(ctx context.Context, newEmail, token string) error {
	msg, err := m.composer.EmailChangeConfirmation(newEmail, token)
	return m.deliver(ctx, msg, err)
}

func (m *Mailer) SendEmailChangedNotification(ctx context.Context, oldEmail, newEmail string) error {
	msg, err := m.composer.EmailChanged(oldEmail, newEmail)
	return m.deliver(ctx, msg, err)
}
