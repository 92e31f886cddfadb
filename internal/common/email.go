package common

// EmailSender is the outbound mail seam. The receipt mailer is its only
// producer; swap in a provider-backed implementation at wiring time.
type EmailSender interface {
	Send(to, subject, html string) error
}

// Email is a single message captured by InMemoryEmail.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// InMemoryEmail records messages for tests instead of sending them.
type InMemoryEmail struct {
	Outbox []Email
}

func (m *InMemoryEmail) Send(to, subject, html string) error {
	if m == nil {
		return nil
	}
	m.Outbox = append(m.Outbox, Email{To: to, Subject: subject, HTML: html})
	return nil
}

// NopEmailSender discards every message. Used when no receipt recipient is
// configured.
type NopEmailSender struct{}

func (NopEmailSender) Send(string, string, string) error { return nil }
