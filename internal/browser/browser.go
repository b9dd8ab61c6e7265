// Package browser drives contact-form submissions through a real browser.
// It implements the outreach form channel; the controller only sees the
// Submit contract and never imports rod.
package browser

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/AbdouEl-Ghazali/link-builder/internal/logging"
	"github.com/AbdouEl-Ghazali/link-builder/internal/outreach"
)

type Submitter struct {
	browser *rod.Browser
	log     *logging.Logger
}

// New launches a headless browser. Leakless is disabled to avoid antivirus
// false positives on Windows hosts.
func New(log *logging.Logger) (*Submitter, error) {
	l := launcher.New().Leakless(false).Headless(true)
	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	b := rod.New().ControlURL(url)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	return &Submitter{browser: b, log: log.With("module", "browser")}, nil
}

func (s *Submitter) Close() {
	if s.browser != nil {
		_ = s.browser.Close()
	}
}

// Field selectors tried in order for each slot of a typical contact form.
var (
	nameSelectors = []string{
		`input[name*="name" i]`, `input[id*="name" i]`, `input[placeholder*="name" i]`,
	}
	emailSelectors = []string{
		`input[type="email"]`, `input[name*="email" i]`, `input[id*="email" i]`,
	}
	subjectSelectors = []string{
		`input[name*="subject" i]`, `input[id*="subject" i]`,
	}
	messageSelectors = []string{
		`textarea[name*="message" i]`, `textarea[id*="message" i]`, `textarea`,
	}
	submitSelectors = []string{
		`button[type="submit"]`, `input[type="submit"]`,
	}
)

// Submit opens the form URL, fills whichever of the usual contact-form
// fields exist, and submits. The message textarea and a submit control are
// required; name, email and subject slots are best effort since many forms
// lack them.
func (s *Submitter) Submit(ctx context.Context, formURL string, fields outreach.FormFields) error {
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := page.Navigate(formURL); err != nil {
		return fmt.Errorf("navigate %s: %w", formURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("load %s: %w", formURL, err)
	}
	sleepRandom(400, 1200)

	fillFirst(page, nameSelectors, fields.Name)
	fillFirst(page, emailSelectors, fields.Email)
	fillFirst(page, subjectSelectors, fields.Subject)
	if !fillFirst(page, messageSelectors, fields.Message) {
		return fmt.Errorf("no message field found on %s", formURL)
	}
	sleepRandom(300, 900)

	submit, err := findFirst(page, submitSelectors, 5*time.Second)
	if err != nil {
		// Some forms use a plain button labeled Send or Submit.
		submit, err = page.Timeout(5*time.Second).ElementR("button", "(?i)send|submit")
	}
	if err != nil {
		return fmt.Errorf("no submit control found on %s: %w", formURL, err)
	}
	if err := submit.Click("left", 1); err != nil {
		return fmt.Errorf("click submit on %s: %w", formURL, err)
	}
	_ = page.WaitLoad()
	sleepRandom(500, 1500)

	s.log.Info("contact form submitted", "url", formURL)
	return nil
}

func findFirst(page *rod.Page, selectors []string, d time.Duration) (*rod.Element, error) {
	var lastErr error
	for _, sel := range selectors {
		el, err := page.Timeout(d).Element(sel)
		if err == nil {
			return el, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no selector matched")
	}
	return nil, lastErr
}

func fillFirst(page *rod.Page, selectors []string, value string) bool {
	if value == "" {
		return false
	}
	el, err := findFirst(page, selectors, 2*time.Second)
	if err != nil {
		return false
	}
	if err := el.Input(value); err != nil {
		return false
	}
	sleepRandom(150, 500)
	return true
}

func sleepRandom(minMs, maxMs int) {
	if maxMs <= minMs {
		time.Sleep(time.Duration(minMs) * time.Millisecond)
		return
	}
	time.Sleep(time.Duration(minMs+rand.Intn(maxMs-minMs)) * time.Millisecond)
}
