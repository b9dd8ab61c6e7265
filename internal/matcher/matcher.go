// Package matcher pairs prospects with the single best piece of owned
// content. Matches are recomputed on every invocation from the current
// stores and never persisted, so re-running after new content or prospects
// always reflects the latest state.
package matcher

import (
	"strings"

	"github.com/AbdouEl-Ghazali/link-builder/internal/models"
	"github.com/AbdouEl-Ghazali/link-builder/internal/store"
)

// Scorer rates how relevant a content item is for a prospect. The relevance
// semantics are a pluggable strategy; TokenOverlap is the default.
type Scorer interface {
	Score(p models.Prospect, item models.ContentItem) int
}

// TokenOverlap counts normalized tokens shared between the prospect's
// relevance text and the content item's topics plus title.
type TokenOverlap struct{}

func (TokenOverlap) Score(p models.Prospect, item models.ContentItem) int {
	prospectTokens := Tokenize(p.Relevance)
	if len(prospectTokens) == 0 {
		return 0
	}
	contentTokens := make(map[string]struct{})
	for _, t := range item.Topics {
		for tok := range Tokenize(t) {
			contentTokens[tok] = struct{}{}
		}
	}
	for tok := range Tokenize(item.Title) {
		contentTokens[tok] = struct{}{}
	}
	score := 0
	for tok := range prospectTokens {
		if _, ok := contentTokens[tok]; ok {
			score++
		}
	}
	return score
}

// Tokenize lowercases text, strips punctuation and returns the set of words.
func Tokenize(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if f != "" {
			out[f] = struct{}{}
		}
	}
	return out
}

type Matcher struct {
	scorer   Scorer
	minScore int
}

// New builds a matcher with the given minimum-overlap threshold. A nil
// scorer falls back to TokenOverlap.
func New(scorer Scorer, minScore int) *Matcher {
	if scorer == nil {
		scorer = TokenOverlap{}
	}
	if minScore < 1 {
		minScore = 1
	}
	return &Matcher{scorer: scorer, minScore: minScore}
}

// Match pairs each prospect with at most one content item: the strictly
// highest-scoring one, ties broken by content insertion order. A prospect
// whose best score is below the threshold yields no match at all rather
// than a poor pairing.
func (m *Matcher) Match(prospects []models.Prospect, content *store.ContentIndex) []models.Match {
	var out []models.Match
	for _, p := range prospects {
		best := -1
		bestScore := 0
		for i, item := range content.Items() {
			if s := m.scorer.Score(p, item); s > bestScore {
				best, bestScore = i, s
			}
		}
		if best < 0 || bestScore < m.minScore {
			continue
		}
		item := content.Items()[best]
		out = append(out, models.Match{
			ProspectSite: p.SiteName,
			ContentURL:   item.URL,
			ContentTitle: item.Title,
			Score:        bestScore,
		})
	}
	return out
}
