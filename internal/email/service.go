// Package email sends new-lead notifications over SMTP.
package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("email not configured")

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
	// Recipients of new-lead notifications
	NotifyTo []string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	config Config
	server string
	auth   smtp.Auth
	send   sendFunc
}

func NewService(config Config) *Service {
	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   smtp.PlainAuth("", config.Username, config.Password, config.Host),
		send:   smtp.SendMail,
	}
}

// IsConfigured reports whether the SMTP server, sender and recipients are set.
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != "" && len(s.config.NotifyTo) > 0
}

// LeadData is rendered into the notification body.
type LeadData struct {
	ID              string
	Name            string
	Email           string
	Phone           string
	Address         string
	Neighborhood    string
	City            string
	State           string
	Source          string
	ServiceInterest string
	Notes           string
	ReceivedAt      time.Time
}

// SendLeadNotification emails the configured recipients about a new lead.
func (s *Service) SendLeadNotification(lead LeadData) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	html, err := renderTemplate(newLeadTemplate, lead)
	if err != nil {
		return fmt.Errorf("render lead template: %w", err)
	}
	subject := "New lead: " + firstNonEmpty(lead.Name, lead.Email, lead.ID)
	if lead.Neighborhood != "" {
		subject += " (" + lead.Neighborhood + ")"
	}
	msg := s.buildMessage(s.config.NotifyTo, subject, html)
	if err := s.send(s.server, s.auth, s.config.From, s.config.NotifyTo, msg); err != nil {
		return fmt.Errorf("send lead notification: %w", err)
	}
	return nil
}

func (s *Service) buildMessage(to []string, subject, htmlBody string) []byte {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}
	boundary := "boundary-eagleeye"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary)

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "%s\r\n\r\n", subject)

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "%s\r\n\r\n", htmlBody)
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)
	return msg.Bytes()
}

func renderTemplate(tmpl string, data any) (string, error) {
	t, err := template.New("email").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

const newLeadTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>New lead</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        th { text-align: left; padding-right: 16px; color: #666; }
    </style>
</head>
<body>
    <h2>New lead received</h2>
    <table>
        <tr><th>Name</th><td>{{.Name}}</td></tr>
        <tr><th>Email</th><td>{{.Email}}</td></tr>
        <tr><th>Phone</th><td>{{.Phone}}</td></tr>
        {{if .Address}}<tr><th>Address</th><td>{{.Address}}</td></tr>{{end}}
        <tr><th>Neighborhood</th><td>{{.Neighborhood}}{{if .City}}, {{.City}}{{end}}{{if .State}} {{.State}}{{end}}</td></tr>
        <tr><th>Source</th><td>{{.Source}}</td></tr>
        {{if .ServiceInterest}}<tr><th>Interested in</th><td>{{.ServiceInterest}}</td></tr>{{end}}
        {{if .Notes}}<tr><th>Notes</th><td>{{.Notes}}</td></tr>{{end}}
    </table>
    <p>Received {{.ReceivedAt.Format "Jan 2, 2006 3:04 PM MST"}} &middot; lead {{.ID}}</p>
</body>
</html>`
