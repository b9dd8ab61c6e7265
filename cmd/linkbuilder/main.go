package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/AbdouEl-Ghazali/link-builder/internal/activity"
	"github.com/AbdouEl-Ghazali/link-builder/internal/browser"
	"github.com/AbdouEl-Ghazali/link-builder/internal/compiler"
	"github.com/AbdouEl-Ghazali/link-builder/internal/config"
	"github.com/AbdouEl-Ghazali/link-builder/internal/haro"
	"github.com/AbdouEl-Ghazali/link-builder/internal/logging"
	"github.com/AbdouEl-Ghazali/link-builder/internal/mailer"
	"github.com/AbdouEl-Ghazali/link-builder/internal/matcher"
	"github.com/AbdouEl-Ghazali/link-builder/internal/models"
	"github.com/AbdouEl-Ghazali/link-builder/internal/outreach"
	"github.com/AbdouEl-Ghazali/link-builder/internal/store"
	"github.com/AbdouEl-Ghazali/link-builder/internal/tracker"
)

func main() {
	ctx := context.Background()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yaml", "Path to config file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `linkbuilder - backlink outreach pipeline

Usage:
  linkbuilder [--config config.yaml] <command> [options]

Commands:
  merge-prospects --in FILE    Merge discovered prospects into the store
  extract-haro --in FILE       Parse saved HARO queries into prospects and merge
  match                        Preview prospect -> content matches
  compile                      Match and compile outreach messages
  send [--dry-run] [--limit N] Deliver compiled messages and log outcomes
  track-links                  Check prospect homepages for backlinks
  stats [--agent NAME]         Activity log statistics
  run-all                      merge new prospects if present, compile, send

Examples:
  linkbuilder merge-prospects --in data/new_prospects.json
  linkbuilder send --dry-run
`)
	}

	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Logging.Level)

	cmd := flag.Arg(0)
	args := flag.Args()[1:]
	log.Info("executing command", "command", cmd)
	switch cmd {
	case "merge-prospects":
		err = runMergeProspects(cfg, log, args)
	case "extract-haro":
		err = runExtractHaro(cfg, log, args)
	case "match":
		err = runMatch(cfg, log)
	case "compile":
		err = runCompile(cfg, log)
	case "send":
		err = runSend(ctx, cfg, log, args)
	case "track-links":
		err = runTrackLinks(ctx, cfg, log)
	case "stats":
		err = runStats(cfg, args)
	case "run-all":
		err = runAll(ctx, cfg, log)
	default:
		err = fmt.Errorf("unknown command: %s", cmd)
	}

	if err != nil {
		log.Error("command failed", "cmd", cmd, "err", err)
		fmt.Fprintf(os.Stderr, "\ncommand failed: %v\n", err)
		os.Exit(1)
	}
	log.Info("command completed", "cmd", cmd)
}

func runMergeProspects(cfg *config.Config, log *logging.Logger, args []string) error {
	fs := flag.NewFlagSet("merge-prospects", flag.ContinueOnError)
	var in string
	fs.StringVar(&in, "in", "", "JSON file of newly discovered prospects")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if in == "" {
		return fmt.Errorf("merge-prospects: --in is required")
	}

	var incoming []models.Prospect
	if err := store.ReadJSON(in, &incoming); err != nil {
		return err
	}
	return mergeIntoStore(cfg, log, incoming, "prospect_merger")
}

func runExtractHaro(cfg *config.Config, log *logging.Logger, args []string) error {
	fs := flag.NewFlagSet("extract-haro", flag.ContinueOnError)
	var in string
	fs.StringVar(&in, "in", cfg.Path("haro_requests.json"), "Saved HARO requests JSON file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	requests, err := haro.LoadRequests(in)
	if err != nil {
		return err
	}
	content, err := store.LoadContent(cfg.Path(cfg.Data.Content))
	if err != nil {
		return err
	}
	keywords := content.AllTopics()

	var incoming []models.Prospect
	for _, req := range requests {
		for _, q := range haro.ExtractQueries(req.QueryText) {
			matched := haro.MatchKeywords(q.Text, keywords)
			if p, ok := haro.ProspectFromQuery(q.Text, matched); ok {
				incoming = append(incoming, p)
			}
		}
	}
	log.Info("haro extraction complete", "requests", len(requests), "prospects", len(incoming))
	return mergeIntoStore(cfg, log, incoming, "haro_finder")
}

func mergeIntoStore(cfg *config.Config, log *logging.Logger, incoming []models.Prospect, agent string) error {
	prospects, err := store.OpenProspects(cfg.Path(cfg.Data.Prospects))
	if err != nil {
		return err
	}
	sub, err := outreach.OpenLog(cfg.Path(cfg.Data.OutreachLog))
	if err != nil {
		return err
	}

	res := prospects.Merge(incoming, sub.ContactedIdentities())
	for _, rej := range res.Rejected {
		log.Warn("prospect rejected", "err", rej)
	}
	if err := prospects.Save(); err != nil {
		return err
	}

	act := activity.Open(cfg.Path(cfg.Data.ActivityLog))
	_ = act.Record(agent, "merge prospects", "completed", map[string]any{
		"added": res.Added, "merged": res.Merged, "dropped": res.Dropped, "rejected": len(res.Rejected),
	})

	log.Info("prospect store updated",
		"added", res.Added, "merged", res.Merged,
		"dropped_contacted", res.Dropped, "rejected", len(res.Rejected),
		"total", prospects.Len())
	fmt.Printf("merged %d new prospects (%d updated, %d already contacted, %d rejected), store now has %d\n",
		res.Added, res.Merged, res.Dropped, len(res.Rejected), prospects.Len())
	return nil
}

func runMatch(cfg *config.Config, log *logging.Logger) error {
	matches, _, _, err := computeMatches(cfg)
	if err != nil {
		return err
	}
	for _, m := range matches {
		fmt.Printf("%-30s -> %s (score %d)\n", m.ProspectSite, m.ContentURL, m.Score)
	}
	log.Info("match preview complete", "matches", len(matches))
	return nil
}

func computeMatches(cfg *config.Config) ([]models.Match, *store.ProspectStore, *store.ContentIndex, error) {
	prospects, err := store.OpenProspects(cfg.Path(cfg.Data.Prospects))
	if err != nil {
		return nil, nil, nil, err
	}
	content, err := store.LoadContent(cfg.Path(cfg.Data.Content))
	if err != nil {
		return nil, nil, nil, err
	}
	m := matcher.New(matcher.TokenOverlap{}, cfg.Matching.MinScore)
	return m.Match(prospects.All(), content), prospects, content, nil
}

func runCompile(cfg *config.Config, log *logging.Logger) error {
	matches, prospects, content, err := computeMatches(cfg)
	if err != nil {
		return err
	}

	bySite := make(map[string]models.Prospect, prospects.Len())
	for _, p := range prospects.All() {
		bySite[p.SiteName] = p
	}

	comp := compiler.New(compiler.Config{
		BusinessName: cfg.Business.Name,
		BlogURL:      cfg.Business.BlogURL,
		SenderName:   cfg.SMTP.FromName,
	})
	messages, rejected := comp.CompileBatch(matches, bySite, content.Get)
	for _, r := range rejected {
		log.Warn("message rejected", "reason", r)
	}

	out := cfg.Path(cfg.Data.Messages)
	if err := store.WriteJSON(out, messages); err != nil {
		return err
	}

	act := activity.Open(cfg.Path(cfg.Data.ActivityLog))
	_ = act.Record("message_compiler", "compile outreach messages", "completed", map[string]any{
		"matched": len(matches), "compiled": len(messages), "rejected": len(rejected),
	})

	log.Info("messages compiled", "matched", len(matches), "compiled", len(messages), "rejected", len(rejected), "file", out)
	fmt.Printf("matched %d prospects, compiled %d messages (%d rejected) -> %s\n",
		len(matches), len(messages), len(rejected), out)
	return nil
}

func runSend(ctx context.Context, cfg *config.Config, log *logging.Logger, args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	var dryRun bool
	var limit int
	fs.BoolVar(&dryRun, "dry-run", false, "Validate and report without sending or logging")
	fs.IntVar(&limit, "limit", cfg.Limits.MaxSendsPerRun, "Max messages to send in this run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// The validated file is the canonical input when the upstream writing
	// quality gate ran; fall back to the raw compiled messages otherwise.
	path := cfg.Path(cfg.Data.ValidatedMessages)
	if !fileExists(path) {
		path = cfg.Path(cfg.Data.Messages)
	}
	var messages []models.OutreachMessage
	if err := store.ReadJSON(path, &messages); err != nil {
		return err
	}
	if len(messages) == 0 {
		fmt.Println("no messages to send")
		return nil
	}
	log.Info("sending messages", "file", path, "count", len(messages), "dry_run", dryRun)

	sub, err := outreach.OpenLog(cfg.Path(cfg.Data.OutreachLog))
	if err != nil {
		return err
	}

	email := mailer.New(mailer.Config{
		Host: cfg.SMTP.Host, Port: cfg.SMTP.Port,
		User: cfg.SMTP.User, Password: cfg.SMTP.Password,
		FromEmail: cfg.SMTP.FromEmail, FromName: cfg.SMTP.FromName,
		UseTLS: cfg.SMTP.UseTLS,
	}, log)
	if !cfg.SMTPConfigured() {
		log.Warn("smtp credentials not configured, email sends will fail over to contact forms where available")
	}

	var form outreach.FormChannel
	if !dryRun && hasFormMessages(messages) {
		br, err := browser.New(log)
		if err != nil {
			log.Warn("form channel unavailable", "err", err)
		} else {
			defer br.Close()
			form = br
		}
	}

	ctrl := outreach.New(outreach.Config{
		SenderName:         cfg.SMTP.FromName,
		SenderEmail:        cfg.SMTP.FromEmail,
		DomainCheckTimeout: cfg.Timeouts.DomainCheck,
		SendTimeout:        cfg.Timeouts.Send,
		SubmitTimeout:      cfg.Timeouts.FormSubmit,
		MaxSends:           limit,
		DryRun:             dryRun,
	}, sub, email, form, log)

	sum, err := ctrl.Run(ctx, messages)

	act := activity.Open(cfg.Path(cfg.Data.ActivityLog))
	status := "completed"
	if err != nil {
		status = "failed"
	}
	_ = act.Record("submitter", "send outreach messages", status, map[string]any{
		"processed": sum.Processed, "sent": sum.Sent, "failed": sum.Failed,
		"skipped": sum.Skipped, "already_contacted": sum.AlreadyContacted,
	})

	fmt.Printf("processed %d messages: %d sent, %d failed, %d skipped (%d already contacted)\n",
		sum.Processed, sum.Sent, sum.Failed, sum.Skipped, sum.AlreadyContacted)
	return err
}

func hasFormMessages(messages []models.OutreachMessage) bool {
	for _, m := range messages {
		if m.ContactFormURL != "" {
			return true
		}
	}
	return false
}

func runTrackLinks(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	prospects, err := store.OpenProspects(cfg.Path(cfg.Data.Prospects))
	if err != nil {
		return err
	}
	if cfg.Business.TargetDomain == "" {
		return fmt.Errorf("track-links: business.target_domain is required")
	}

	tr := tracker.New(cfg.Business.TargetDomain, cfg.Timeouts.Fetch, log)
	report := tr.Check(ctx, prospects.All())

	out := cfg.Path(cfg.Data.BacklinkReport)
	if err := store.WriteJSON(out, report); err != nil {
		return err
	}
	fmt.Printf("%d/%d backlinks found -> %s\n",
		report.Summary.BacklinksFound, report.Summary.TotalChecked, out)
	return nil
}

func runStats(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	var agent string
	fs.StringVar(&agent, "agent", "", "Filter by agent name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	act := activity.Open(cfg.Path(cfg.Data.ActivityLog))
	st, err := act.Stats(agent)
	if err != nil {
		return err
	}
	fmt.Printf("total activities: %d\n", st.Total)
	for status, n := range st.ByStatus {
		fmt.Printf("  %-12s %d\n", status, n)
	}
	for agent, n := range st.ByAgent {
		fmt.Printf("  [%s] %d\n", agent, n)
	}
	return nil
}

func runAll(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	// New discoveries, when the agents left any, are folded in before
	// compiling so the same invocation picks them up.
	if in := cfg.Path("new_prospects.json"); fileExists(in) {
		var incoming []models.Prospect
		if err := store.ReadJSON(in, &incoming); err != nil {
			return err
		}
		if err := mergeIntoStore(cfg, log, incoming, "prospect_merger"); err != nil {
			return err
		}
	}
	if err := runCompile(cfg, log); err != nil {
		return err
	}
	return runSend(ctx, cfg, log, nil)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
