// Package outreach holds the submission log and the submission controller.
// The CSV log is the source of truth for "already contacted": dedup is
// always derived from it, never from in-memory progress, which is what makes
// interrupted runs safe to re-run.
package outreach

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AbdouEl-Ghazali/link-builder/internal/models"
	"github.com/AbdouEl-Ghazali/link-builder/internal/store"
)

var logHeader = []string{"timestamp", "site", "contact", "status", "notes"}

// SubmissionLog is the append-only CSV ledger of delivery attempts.
// Existing rows are never rewritten or removed; Append is the only mutation
// and each call writes one fully formed line in a single write, so a crash
// between messages never leaves a half-row that parses as a complete one.
type SubmissionLog struct {
	path      string
	contacted map[string]models.Status // (site, contact) -> terminal status
	rows      int
}

func contactKey(site, contact string) string {
	return strings.ToLower(strings.TrimSpace(site)) + "\x00" + strings.ToLower(strings.TrimSpace(contact))
}

// OpenLog reads the existing log, if any, and indexes the terminal
// (sent/opened) rows for dedup checks.
func OpenLog(path string) (*SubmissionLog, error) {
	l := &SubmissionLog{path: path, contacted: make(map[string]models.Status)}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("open outreach log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read outreach log: %w", err)
		}
		if first {
			first = false
			if len(rec) > 0 && rec[0] == "timestamp" {
				continue
			}
		}
		if len(rec) < 4 {
			continue
		}
		l.rows++
		status := models.Status(strings.ToLower(strings.TrimSpace(rec[3])))
		if status.Terminal() && rec[1] != "" && rec[2] != "" {
			l.contacted[contactKey(rec[1], rec[2])] = status
		}
	}
	return l, nil
}

// IsContacted reports whether a prior row exists for the exact
// (site, contact) pair with a terminal status. Failed and skipped rows never
// block a retry.
func (l *SubmissionLog) IsContacted(site, contact string) bool {
	_, ok := l.contacted[contactKey(site, contact)]
	return ok
}

// ContactedStatus returns the terminal status for a pair, if any.
func (l *SubmissionLog) ContactedStatus(site, contact string) (models.Status, bool) {
	s, ok := l.contacted[contactKey(site, contact)]
	return s, ok
}

func (l *SubmissionLog) Rows() int { return l.rows }

// Append writes one resolved attempt to the log. The header plus row (or the
// row alone) is encoded first and handed to the file in a single O_APPEND
// write, which is the atomic-line-append guarantee the dedup design rests on.
func (l *SubmissionLog) Append(e models.LogEntry) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("append outreach log: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	needHeader := l.rows == 0
	if needHeader {
		if st, err := os.Stat(l.path); err == nil && st.Size() > 0 {
			needHeader = false
		}
	}
	if needHeader {
		if err := w.Write(logHeader); err != nil {
			return fmt.Errorf("append outreach log: %w", err)
		}
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	if err := w.Write([]string{ts.Format(time.RFC3339), e.Site, e.Contact, string(e.Status), e.Notes}); err != nil {
		return fmt.Errorf("append outreach log: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("append outreach log: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("append outreach log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("append outreach log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("append outreach log: %w", err)
	}

	l.rows++
	if e.Status.Terminal() {
		l.contacted[contactKey(e.Site, e.Contact)] = e.Status
	}
	return nil
}

// ContactedIdentities exposes every terminally contacted site and contact as
// normalized identity keys, for the prospect store to drop re-discovered
// records against.
func (l *SubmissionLog) ContactedIdentities() store.IdentitySet {
	set := make(store.IdentitySet)
	for key := range l.contacted {
		site, contact, _ := strings.Cut(key, "\x00")
		set.Add(store.NormalizeSite(site))
		set.Add(store.NormalizeURL(contact))
	}
	return set
}
