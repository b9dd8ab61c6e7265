package outreach

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AbdouEl-Ghazali/link-builder/internal/logging"
	"github.com/AbdouEl-Ghazali/link-builder/internal/models"
)

// Validation failure kinds for the email channel. The controller branches on
// these to name the failure in the log and to decide on the form fallback.
var (
	ErrInvalidAddress    = errors.New("invalid email address format")
	ErrDomainResolution  = errors.New("domain resolution failed")
	ErrSMTPNotConfigured = errors.New("smtp credentials not configured")
)

// DeliveryError wraps a transport fault. It is always logged and never
// raised out of the controller.
type DeliveryError struct {
	Channel string // "email" or "form"
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery failed: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// EmailChannel is the mail-transport capability the controller depends on.
// Validate reports format errors (ErrInvalidAddress) and resolution errors
// (ErrDomainResolution) before any send is attempted.
type EmailChannel interface {
	Validate(ctx context.Context, addr string) error
	Send(ctx context.Context, to, subject, body string) error
}

// FormFields is what a contact-form submission carries.
type FormFields struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// FormChannel is the abstract contact-form capability.
type FormChannel interface {
	Submit(ctx context.Context, formURL string, fields FormFields) error
}

// Config bounds the controller's network calls and identifies the sender on
// form submissions.
type Config struct {
	SenderName         string
	SenderEmail        string
	DomainCheckTimeout time.Duration
	SendTimeout        time.Duration
	SubmitTimeout      time.Duration
	MaxSends           int
	DryRun             bool
}

// Summary is the user-visible result of a run. Specific failure notes live
// in the log rows themselves; nothing is dropped silently.
type Summary struct {
	Processed        int
	Sent             int
	Failed           int
	Skipped          int
	AlreadyContacted int
}

// Controller drives delivery attempts against the log's dedup state.
// Messages are processed one at a time: the log is shared mutable state
// read-then-appended on every message, and sequential processing is the
// only locking-free way to keep the dedup check and the append consistent.
type Controller struct {
	cfg   Config
	log   *logging.Logger
	sub   *SubmissionLog
	email EmailChannel
	form  FormChannel
}

func New(cfg Config, sub *SubmissionLog, email EmailChannel, form FormChannel, log *logging.Logger) *Controller {
	if cfg.DomainCheckTimeout <= 0 {
		cfg.DomainCheckTimeout = 5 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 60 * time.Second
	}
	return &Controller{cfg: cfg, log: log.With("module", "outreach"), sub: sub, email: email, form: form}
}

// state of one message within a run: pending -> sent | failed | skipped.
// failed may fall through to skipped when the fallback channel is also
// unavailable, never back to pending.
type state int

const (
	statePending state = iota
	stateSent
	stateFailed
	stateSkipped
)

// Run processes every message in order. Each resolved attempt appends
// exactly one log row (two for the email-then-form fallback case); one
// message's fault never aborts the batch. Only log I/O errors are fatal.
func (c *Controller) Run(ctx context.Context, messages []models.OutreachMessage) (Summary, error) {
	var sum Summary
	for _, msg := range messages {
		if c.cfg.MaxSends > 0 && sum.Sent >= c.cfg.MaxSends {
			c.log.Info("send limit reached", "limit", c.cfg.MaxSends)
			break
		}
		sum.Processed++
		if err := c.deliverOne(ctx, msg, &sum); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func (c *Controller) deliverOne(ctx context.Context, msg models.OutreachMessage, sum *Summary) error {
	// Dedup check happens immediately before each send so that re-runs and
	// rows appended earlier in this same run are both honored.
	if prior, ok := c.sub.ContactedStatus(msg.Site, msg.Contact()); ok {
		c.log.Info("skipping, already contacted", "site", msg.Site, "contact", msg.Contact(), "prior_status", prior)
		sum.AlreadyContacted++
		sum.Skipped++
		return c.append(models.LogEntry{
			Site: msg.Site, Contact: msg.Contact(), Status: models.StatusSkipped,
			Notes: fmt.Sprintf("already contacted (status %s)", prior),
		})
	}

	if msg.To == "" && msg.ContactFormURL == "" {
		sum.Skipped++
		return c.append(models.LogEntry{
			Site: msg.Site, Contact: "N/A", Status: models.StatusSkipped,
			Notes: "no email address or contact form URL",
		})
	}

	// Email preferred when both channels exist.
	if msg.To != "" {
		st, err := c.deliverEmail(ctx, msg, sum)
		if err != nil {
			return err
		}
		if st != stateFailed {
			return nil
		}
		// Validation or domain faults fall back to the form channel when one
		// exists, logged as a separate row. Without a fallback the failed
		// state is terminal for this run.
		if msg.ContactFormURL == "" {
			return nil
		}
		if c.sub.IsContacted(msg.Site, msg.ContactFormURL) {
			sum.Skipped++
			return c.append(models.LogEntry{
				Site: msg.Site, Contact: msg.ContactFormURL, Status: models.StatusSkipped,
				Notes: "fallback form already contacted",
			})
		}
	}

	_, err := c.deliverForm(ctx, msg, sum)
	return err
}

func (c *Controller) deliverEmail(ctx context.Context, msg models.OutreachMessage, sum *Summary) (state, error) {
	// Validation is DNS work, not mail transport, so it gets the tighter
	// domain-check bound rather than the send timeout.
	vctx, cancel := context.WithTimeout(ctx, c.cfg.DomainCheckTimeout)
	err := c.email.Validate(vctx, msg.To)
	cancel()
	if err != nil {
		note := fmt.Sprintf("email validation failed: %v", err)
		switch {
		case errors.Is(err, ErrInvalidAddress):
			note = fmt.Sprintf("invalid email format: %s", msg.To)
		case errors.Is(err, ErrDomainResolution):
			note = fmt.Sprintf("domain resolution failed for %s: %v", msg.To, err)
		}
		c.log.Warn("email validation failed", "site", msg.Site, "to", msg.To, "err", err)
		sum.Failed++
		return stateFailed, c.append(models.LogEntry{
			Site: msg.Site, Contact: msg.To, Status: models.StatusFailed, Notes: note,
		})
	}

	if c.cfg.DryRun {
		c.log.Info("dry run, would send email", "site", msg.Site, "to", msg.To, "subject", msg.Subject)
		sum.Skipped++
		return stateSkipped, nil
	}

	sctx, cancel := context.WithTimeout(ctx, c.cfg.SendTimeout)
	err = c.email.Send(sctx, msg.To, msg.Subject, msg.Body)
	cancel()
	if err != nil {
		derr := &DeliveryError{Channel: "email", Err: err}
		c.log.Warn("email delivery failed", "site", msg.Site, "to", msg.To, "err", err)
		sum.Failed++
		if aerr := c.append(models.LogEntry{
			Site: msg.Site, Contact: msg.To, Status: models.StatusFailed, Notes: derr.Error(),
		}); aerr != nil {
			return stateFailed, aerr
		}
		// A transport fault that turns out to be an unresolvable recipient
		// domain is still worth a form attempt; anything else is not.
		if errors.Is(err, ErrDomainResolution) {
			return stateFailed, nil
		}
		return stateSkipped, nil
	}

	c.log.Info("email sent", "site", msg.Site, "to", msg.To)
	sum.Sent++
	return stateSent, c.append(models.LogEntry{
		Site: msg.Site, Contact: msg.To, Status: models.StatusSent, Notes: "email sent via SMTP",
	})
}

func (c *Controller) deliverForm(ctx context.Context, msg models.OutreachMessage, sum *Summary) (state, error) {
	if c.form == nil {
		sum.Skipped++
		return stateSkipped, c.append(models.LogEntry{
			Site: msg.Site, Contact: msg.ContactFormURL, Status: models.StatusSkipped,
			Notes: "form channel unavailable",
		})
	}

	if c.cfg.DryRun {
		c.log.Info("dry run, would submit form", "site", msg.Site, "form", msg.ContactFormURL)
		sum.Skipped++
		return stateSkipped, nil
	}

	fctx, cancel := context.WithTimeout(ctx, c.cfg.SubmitTimeout)
	err := c.form.Submit(fctx, msg.ContactFormURL, FormFields{
		Name:    c.cfg.SenderName,
		Email:   c.cfg.SenderEmail,
		Subject: msg.Subject,
		Message: msg.Body,
	})
	cancel()
	if err != nil {
		derr := &DeliveryError{Channel: "form", Err: err}
		c.log.Warn("form delivery failed", "site", msg.Site, "form", msg.ContactFormURL, "err", err)
		sum.Failed++
		return stateFailed, c.append(models.LogEntry{
			Site: msg.Site, Contact: msg.ContactFormURL, Status: models.StatusFailed, Notes: derr.Error(),
		})
	}

	c.log.Info("form submitted", "site", msg.Site, "form", msg.ContactFormURL)
	sum.Sent++
	return stateSent, c.append(models.LogEntry{
		Site: msg.Site, Contact: msg.ContactFormURL, Status: models.StatusSent, Notes: "contact form submitted",
	})
}

func (c *Controller) append(e models.LogEntry) error {
	if c.cfg.DryRun {
		return nil
	}
	return c.sub.Append(e)
}
