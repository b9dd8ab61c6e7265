// Package mailer is the SMTP implementation of the outreach email channel.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"regexp"
	"strings"
	"time"

	"github.com/AbdouEl-Ghazali/link-builder/internal/logging"
	"github.com/AbdouEl-Ghazali/link-builder/internal/outreach"
)

var addressRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	FromEmail string
	FromName  string
	UseTLS    bool
}

type Sender struct {
	cfg      Config
	log      *logging.Logger
	resolver *net.Resolver
}

func New(cfg Config, log *logging.Logger) *Sender {
	return &Sender{cfg: cfg, log: log.With("module", "mailer"), resolver: net.DefaultResolver}
}

// Domain extracts the domain part of an email address.
func Domain(addr string) string {
	_, domain, ok := strings.Cut(addr, "@")
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(domain))
}

// Validate checks the address format and that its domain resolves. An MX
// lookup failure alone is tolerated when the host itself resolves; only a
// total resolution failure blocks the send.
func (s *Sender) Validate(ctx context.Context, addr string) error {
	if addr == "" || !addressRe.MatchString(addr) {
		return fmt.Errorf("%w: %q", outreach.ErrInvalidAddress, addr)
	}
	if _, err := mail.ParseAddress(addr); err != nil {
		return fmt.Errorf("%w: %q", outreach.ErrInvalidAddress, addr)
	}

	domain := Domain(addr)
	mx, mxErr := s.resolver.LookupMX(ctx, domain)
	if mxErr == nil && len(mx) > 0 {
		return nil
	}
	if _, err := s.resolver.LookupHost(ctx, domain); err != nil {
		return fmt.Errorf("%w: %s: %v", outreach.ErrDomainResolution, domain, err)
	}
	s.log.Debug("domain has no MX records but resolves", "domain", domain)
	return nil
}

// Send delivers one message over SMTP, honoring the context deadline for
// the whole dial-auth-send exchange.
func (s *Sender) Send(ctx context.Context, to, subject, body string) error {
	if s.cfg.User == "" || s.cfg.Password == "" {
		return outreach.ErrSMTPNotConfigured
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	}

	cl, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer cl.Close()

	if s.cfg.UseTLS {
		if ok, _ := cl.Extension("STARTTLS"); ok {
			if err := cl.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}
	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	if err := cl.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := cl.Mail(s.cfg.FromEmail); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := cl.Rcpt(to); err != nil {
		// Relays report unknown recipient domains here rather than at
		// connect time; surface those as resolution failures so the
		// controller can try the form fallback.
		if isDomainNotFound(err) {
			return fmt.Errorf("%w: %s: %v", outreach.ErrDomainResolution, Domain(to), err)
		}
		return fmt.Errorf("smtp rcpt: %w", err)
	}
	w, err := cl.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(s.encode(to, subject, body)); err != nil {
		w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return cl.Quit()
}

func (s *Sender) encode(to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", s.cfg.FromName, s.cfg.FromEmail)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

func isDomainNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "couldn't be found") ||
		(strings.Contains(msg, "domain") && strings.Contains(msg, "not found"))
}
