package models

import "time"

// Prospect is a candidate website/contact for backlink outreach. The JSON
// field names are the interchange contract with the discovery agents that
// write prospects.json, so they stay snake_case.
type Prospect struct {
	SiteName       string `json:"site_name"`
	HomepageURL    string `json:"homepage_url,omitempty"`
	ContactEmail   string `json:"contact_email,omitempty"`
	ContactFormURL string `json:"contact_form_url,omitempty"`
	Relevance      string `json:"relevance"`
	FoundDate      string `json:"found_date"` // YYYY-MM-DD
}

// HasContact reports whether at least one contact channel is populated.
func (p Prospect) HasContact() bool {
	return p.ContactEmail != "" || p.ContactFormURL != ""
}

// ContentItem is a piece of the business's own published material.
type ContentItem struct {
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Summary string   `json:"summary,omitempty"`
	Topics  []string `json:"topics"`
}

// Match pairs one prospect with one content item. Matches are derived data,
// recomputed every run and never persisted.
type Match struct {
	ProspectSite string
	ContentURL   string
	ContentTitle string
	Score        int
}

// OutreachMessage is a compiled, submittable message. Exactly one of
// To/ContactFormURL drives delivery, email preferred when both exist.
// Messages are immutable after compilation; a rejected message is dropped
// from the batch, never edited.
type OutreachMessage struct {
	ID                  string `json:"id"`
	Site                string `json:"site"`
	To                  string `json:"to,omitempty"`
	ContactFormURL      string `json:"contact_form_url,omitempty"`
	Subject             string `json:"subject"`
	Body                string `json:"message"`
	MatchedContentTitle string `json:"matched_content_title"`
	MatchedContentURL   string `json:"matched_content_url"`
}

// Contact returns the identity the submission log keys on: the email when
// present, otherwise the contact form URL.
func (m OutreachMessage) Contact() string {
	if m.To != "" {
		return m.To
	}
	return m.ContactFormURL
}

// Status is the outcome of a single delivery attempt.
type Status string

const (
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusOpened  Status = "opened" // written by inbox tracking, never by the controller
)

// Terminal reports whether the status marks the contact as done. A sent or
// opened row for a (site, contact) pair blocks all future attempts; failed
// and skipped never do.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusOpened
}

// LogEntry is one row of the outreach CSV log, the append-only audit trail
// and cross-run dedup source.
type LogEntry struct {
	Timestamp time.Time
	Site      string
	Contact   string
	Status    Status
	Notes     string
}
