// Package haro extracts outreach prospects from saved HARO-style digest
// text. Fetching the digests (IMAP, inbox polling) is the surrounding
// agent's job; this package only parses what was saved.
package haro

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/AbdouEl-Ghazali/link-builder/internal/models"
)

// Query is one journalist request pulled out of a digest body.
type Query struct {
	Number string `json:"query_number"`
	Text   string `json:"query_text"`
}

// Request is a saved digest entry as written by the discovery agent.
type Request struct {
	EmailID      string `json:"email_id,omitempty"`
	EmailDate    string `json:"email_date,omitempty"`
	EmailSubject string `json:"email_subject,omitempty"`
	QueryNumber  string `json:"query_number,omitempty"`
	QueryText    string `json:"query_text"`
}

// LoadRequests reads a saved HARO requests JSON file.
func LoadRequests(path string) ([]Request, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read haro requests: %w", err)
	}
	var reqs []Request
	if err := json.Unmarshal(b, &reqs); err != nil {
		return nil, fmt.Errorf("parse haro requests: %w", err)
	}
	return reqs, nil
}

var (
	queryMarkerRe = regexp.MustCompile(`(?im)query\s*#?\s*(\d+)[:.]?`)
	numberedRe    = regexp.MustCompile(`^\d+[.)]\s+`)
	headerRe      = regexp.MustCompile(`^[A-Z][A-Z\s]+:`)
	emailRe       = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)
	urlRe         = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+[^\s<>"{}|\\^` + "`" + `\[\].,;:!?]`)

	commaLineRe = regexp.MustCompile(`^([^,]+),\s*(.+)$`)
	dashLineRe  = regexp.MustCompile(`^(.+?)\s*[-–—]\s*(.+)$`)
	atLineRe    = regexp.MustCompile(`(?i)(.+?)\s+at\s+(.+)`)
)

const maxQueryLen = 2000

// ExtractQueries splits a digest body into individual queries. Digests mark
// queries with "Query #N" headers; bodies without markers fall back to
// numbered-list and ALL-CAPS header boundaries, and a body with neither is
// treated as a single query.
func ExtractQueries(body string) []Query {
	var queries []Query

	if locs := queryMarkerRe.FindAllStringSubmatchIndex(body, -1); len(locs) > 0 {
		for i, loc := range locs {
			end := len(body)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			num := body[loc[2]:loc[3]]
			text := strings.TrimSpace(body[loc[1]:end])
			// Cut at the first triple blank line, which separates queries
			// from digest footers.
			if i := strings.Index(text, "\n\n\n"); i >= 0 {
				text = strings.TrimSpace(text[:i])
			}
			text = truncateRunes(text, maxQueryLen)
			if text != "" {
				queries = append(queries, Query{Number: num, Text: text})
			}
		}
		return queries
	}

	num := 1
	var current []string
	flush := func() {
		if len(current) > 0 {
			queries = append(queries, Query{Number: fmt.Sprint(num), Text: strings.Join(current, "\n")})
			current = nil
			num++
		}
	}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		if numberedRe.MatchString(line) || headerRe.MatchString(line) {
			flush()
		}
		current = append(current, line)
	}
	flush()

	if len(queries) == 0 {
		if text := strings.TrimSpace(body); text != "" {
			queries = append(queries, Query{Number: "1", Text: truncateRunes(text, maxQueryLen)})
		}
	}
	return queries
}

// ProspectFromQuery pulls a contactable prospect out of one query: the first
// email address and URL, and a site name guessed from the usual
// "Reporter, Publication" / "Publication - Reporter" / "Reporter at
// Publication" byline patterns, falling back to the email's domain. Queries
// with neither an email nor a URL yield nothing.
func ProspectFromQuery(queryText string, matchedKeywords []string) (models.Prospect, bool) {
	contactEmail := emailRe.FindString(queryText)
	homepageURL := urlRe.FindString(queryText)

	siteName := extractSiteName(queryText)
	if siteName == "" && contactEmail != "" {
		domain := strings.SplitN(contactEmail, "@", 2)[1]
		domain = strings.TrimPrefix(domain, "mail.")
		domain = strings.TrimPrefix(domain, "email.")
		base, _, _ := strings.Cut(domain, ".")
		siteName = capitalize(base) + " Publication"
	}
	if siteName == "" {
		siteName = "HARO Request Publication"
	}

	if contactEmail == "" && homepageURL == "" {
		return models.Prospect{}, false
	}
	if homepageURL == "" && contactEmail != "" {
		homepageURL = "https://" + strings.SplitN(contactEmail, "@", 2)[1]
	}

	preview := truncateRunes(strings.TrimSpace(strings.ReplaceAll(queryText, "\n", " ")), 200)
	relevance := fmt.Sprintf("HARO request: %s...", preview)
	if len(matchedKeywords) > 0 {
		kw := matchedKeywords
		if len(kw) > 5 {
			kw = kw[:5]
		}
		relevance = fmt.Sprintf("HARO request: %s... (Keywords: %s)", preview, strings.Join(kw, ", "))
	}

	return models.Prospect{
		SiteName:     siteName,
		HomepageURL:  homepageURL,
		ContactEmail: contactEmail,
		Relevance:    relevance,
		FoundDate:    time.Now().Format("2006-01-02"),
	}, true
}

// MatchKeywords returns which of the given normalized keywords appear in the
// query text, for relevance hinting.
func MatchKeywords(queryText string, keywords []string) []string {
	lower := strings.ToLower(queryText)
	var out []string
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, k) {
			out = append(out, k)
		}
	}
	return out
}

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

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func extractSiteName(queryText string) string {
	lines := strings.Split(queryText, "\n")
	if len(lines) > 10 {
		lines = lines[:10]
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := commaLineRe.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[2])
		}
		if m := dashLineRe.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1])
		}
		if m := atLineRe.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[2])
		}
	}
	return ""
}
