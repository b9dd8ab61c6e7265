// Package compiler turns (prospect, content) matches into submittable
// outreach messages. Message text is generative and not required to be
// deterministic; the structural fields (recipient, matched content URL)
// must mirror the match exactly.
package compiler

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/AbdouEl-Ghazali/link-builder/internal/models"
)

// Config carries the business identity woven into every message.
type Config struct {
	BusinessName string
	BlogURL      string
	SenderName   string
}

type Compiler struct {
	cfg Config
}

func New(cfg Config) *Compiler {
	if cfg.SenderName == "" {
		cfg.SenderName = cfg.BusinessName
	}
	return &Compiler{cfg: cfg}
}

// Compile produces one message for a match. The subject and body always
// reference the prospect's site by name, a concrete detail lifted from its
// stored relevance text, and the matched content's title and URL.
func (c *Compiler) Compile(m models.Match, p models.Prospect, item models.ContentItem) models.OutreachMessage {
	detail := relevanceDetail(p.Relevance)
	subject := fmt.Sprintf("%s — a resource for %s readers", item.Title, p.SiteName)

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s team,\n\n", p.SiteName)
	if detail != "" {
		fmt.Fprintf(&b, "I came across %s and noticed %s.\n\n", p.SiteName, detail)
	} else {
		fmt.Fprintf(&b, "I came across %s while researching sites in our space.\n\n", p.SiteName)
	}
	fmt.Fprintf(&b, "We recently published %q (%s) and it seemed like a genuinely useful fit for your audience", item.Title, item.URL)
	if item.Summary != "" {
		fmt.Fprintf(&b, " — %s", strings.TrimRight(item.Summary, ". "))
	}
	b.WriteString(".\n\n")
	b.WriteString("If it resonates, a mention or link would mean a lot. Happy to return the favor")
	if c.cfg.BlogURL != "" {
		fmt.Fprintf(&b, " on %s", c.cfg.BlogURL)
	}
	b.WriteString(".\n\n")
	fmt.Fprintf(&b, "Best,\n%s\n%s\n", c.cfg.SenderName, c.cfg.BusinessName)

	return models.OutreachMessage{
		ID:                  uuid.NewString(),
		Site:                p.SiteName,
		To:                  p.ContactEmail,
		ContactFormURL:      p.ContactFormURL,
		Subject:             subject,
		Body:                b.String(),
		MatchedContentTitle: item.Title,
		MatchedContentURL:   item.URL,
	}
}

// CompileBatch compiles every match and then enforces the duplicate rule:
// two messages with an identical subject+body signal a templating failure,
// so every copy is rejected rather than silently sent. Rejections are
// reported, not raised.
func (c *Compiler) CompileBatch(matches []models.Match, prospects map[string]models.Prospect, lookup func(url string) (models.ContentItem, bool)) ([]models.OutreachMessage, []string) {
	var compiled []models.OutreachMessage
	var rejected []string
	for _, m := range matches {
		p, ok := prospects[m.ProspectSite]
		if !ok {
			rejected = append(rejected, fmt.Sprintf("%s: prospect missing from store", m.ProspectSite))
			continue
		}
		item, ok := lookup(m.ContentURL)
		if !ok {
			rejected = append(rejected, fmt.Sprintf("%s: matched content %s missing from index", m.ProspectSite, m.ContentURL))
			continue
		}
		compiled = append(compiled, c.Compile(m, p, item))
	}

	seen := make(map[string][]int)
	for i, msg := range compiled {
		key := msg.Subject + "\x00" + msg.Body
		seen[key] = append(seen[key], i)
	}
	dup := make(map[int]bool)
	for _, idxs := range seen {
		if len(idxs) > 1 {
			for _, i := range idxs {
				dup[i] = true
			}
		}
	}
	if len(dup) == 0 {
		return compiled, rejected
	}
	kept := compiled[:0]
	for i, msg := range compiled {
		if dup[i] {
			rejected = append(rejected, fmt.Sprintf("%s: duplicate subject+body in batch", msg.Site))
			continue
		}
		kept = append(kept, msg)
	}
	return kept, rejected
}

// relevanceDetail extracts a short, specific phrase from the stored
// relevance text. HARO-derived prospects carry a "HARO request:" prefix that
// is stripped; the detail is the first clause, capped at a readable length.
// truncateRunes cuts s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func relevanceDetail(relevance string) string {
	s := strings.TrimSpace(relevance)
	s = strings.TrimPrefix(s, "HARO request:")
	if i := strings.Index(s, "(Keywords:"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(strings.Trim(s, "."))
	if s == "" {
		return ""
	}
	if i := strings.IndexAny(s, ".\n"); i > 20 {
		s = s[:i]
	}
	if len(s) > 140 {
		s = truncateRunes(s, 140)
		if i := strings.LastIndex(s, " "); i > 60 {
			s = s[:i]
		}
		s += "…"
	}
	// Lowercase the leading word so the phrase reads inside a sentence.
	r := []rune(s)
	if len(r) > 1 && r[0] >= 'A' && r[0] <= 'Z' && !(r[1] >= 'A' && r[1] <= 'Z') {
		r[0] = r[0] + ('a' - 'A')
	}
	return strings.TrimSpace(string(r))
}
