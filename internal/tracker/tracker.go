// Package tracker checks which prospect sites already link back to the
// target domain.
package tracker

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/AbdouEl-Ghazali/link-builder/internal/logging"
	"github.com/AbdouEl-Ghazali/link-builder/internal/models"
)

type Result struct {
	SiteName    string    `json:"site_name"`
	HomepageURL string    `json:"homepage_url"`
	HasBacklink bool      `json:"has_backlink"`
	CheckedAt   time.Time `json:"checked_at"`
	Error       string    `json:"error,omitempty"`
}

type Report struct {
	TargetDomain string    `json:"target_domain"`
	CheckedAt    time.Time `json:"checked_at"`
	Results      []Result  `json:"results"`
	Summary      struct {
		TotalChecked   int `json:"total_checked"`
		BacklinksFound int `json:"backlinks_found"`
	} `json:"summary"`
}

type Tracker struct {
	targetDomain string
	client       *http.Client
	log          *logging.Logger
}

func New(targetDomain string, fetchTimeout time.Duration, log *logging.Logger) *Tracker {
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	return &Tracker{
		targetDomain: strings.ToLower(strings.TrimPrefix(targetDomain, "www.")),
		client:       &http.Client{Timeout: fetchTimeout},
		log:          log.With("module", "tracker"),
	}
}

// Check fetches every prospect homepage and reports whether an anchor on it
// points at the target domain. Fetch failures are recorded per site, never
// fatal for the run.
func (t *Tracker) Check(ctx context.Context, prospects []models.Prospect) Report {
	report := Report{TargetDomain: t.targetDomain, CheckedAt: time.Now()}
	for _, p := range prospects {
		if p.HomepageURL == "" {
			t.log.Debug("skipping prospect without homepage", "site", p.SiteName)
			continue
		}
		res := Result{SiteName: p.SiteName, HomepageURL: p.HomepageURL, CheckedAt: time.Now()}
		has, err := t.checkPage(ctx, p.HomepageURL)
		if err != nil {
			t.log.Warn("backlink check failed", "site", p.SiteName, "url", p.HomepageURL, "err", err)
			res.Error = err.Error()
		}
		res.HasBacklink = has
		report.Results = append(report.Results, res)
		if has {
			report.Summary.BacklinksFound++
		}
	}
	report.Summary.TotalChecked = len(report.Results)
	return report
}

func (t *Tracker) checkPage(ctx context.Context, pageURL string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; LinkBuilder/1.0; +https://"+t.targetDomain+")")

	resp, err := t.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return false, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	found := false
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if t.linksToTarget(href) {
			found = true
			return false
		}
		return true
	})
	return found, nil
}

func (t *Tracker) linksToTarget(href string) bool {
	h := strings.ToLower(strings.TrimSpace(href))
	h = strings.TrimPrefix(h, "https://")
	h = strings.TrimPrefix(h, "http://")
	h = strings.TrimPrefix(h, "www.")
	return strings.HasPrefix(h, t.targetDomain)
}
