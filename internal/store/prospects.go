package store

import (
	"fmt"
	"strings"

	"github.com/AbdouEl-Ghazali/link-builder/internal/models"
)

// ValidationError marks a single malformed prospect record. The record is
// rejected and the rest of the batch continues.
type ValidationError struct {
	Site   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid prospect %q: %s", e.Site, e.Reason)
}

// IdentitySet is a set of normalized identity keys (site names, homepage
// URLs, contact emails or form URLs).
type IdentitySet map[string]struct{}

func (s IdentitySet) Add(keys ...string) {
	for _, k := range keys {
		if k != "" {
			s[k] = struct{}{}
		}
	}
}

func (s IdentitySet) ContainsAny(keys ...string) bool {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := s[k]; ok {
			return true
		}
	}
	return false
}

// NormalizeSite lowercases and trims a site name for identity comparison.
func NormalizeSite(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeURL reduces a URL to its identity form: lowercase, no scheme,
// no leading www, no trailing slash. Two prospects pointing at the same
// homepage through different spellings collapse to one key.
func NormalizeURL(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	return strings.TrimSuffix(u, "/")
}

// identityKeys returns the normalized identity key set of a prospect.
// Either key matching is sufficient to declare two records the same entity.
func identityKeys(p models.Prospect) []string {
	var keys []string
	if k := NormalizeSite(p.SiteName); k != "" {
		keys = append(keys, k)
	}
	if k := NormalizeURL(p.HomepageURL); k != "" {
		keys = append(keys, k)
	}
	return keys
}

// ProspectStore is the deduplicated set of discovered contact targets,
// persisted as a JSON array shared with the discovery agents.
type ProspectStore struct {
	path      string
	prospects []models.Prospect
}

func OpenProspects(path string) (*ProspectStore, error) {
	s := &ProspectStore{path: path}
	if err := ReadJSON(path, &s.prospects); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ProspectStore) All() []models.Prospect { return s.prospects }

func (s *ProspectStore) Len() int { return len(s.prospects) }

// Save writes the store back through an atomic replace. Read-merge-write is
// the only mutation cycle; the file is never truncated without a merge.
func (s *ProspectStore) Save() error {
	return WriteJSON(s.path, s.prospects)
}

// MergeResult reports what a merge did with the incoming batch.
type MergeResult struct {
	Added    int
	Merged   int
	Dropped  int // identity already contacted per the outreach log
	Rejected []error
}

// Merge folds a batch of newly discovered prospects into the store.
// Existing records keep their original order; genuinely new records are
// appended in discovery order. An incoming record whose identity collides
// with an existing record updates it in place: last-write-wins on relevance,
// union on newly present contact methods. Records whose identity was already
// contacted (terminal status in the outreach log) are dropped, and records
// with no contact channel at all are rejected with a ValidationError.
// Merging the same batch twice leaves the store identical to merging once.
func (s *ProspectStore) Merge(incoming []models.Prospect, contacted IdentitySet) MergeResult {
	index := make(map[string]int, len(s.prospects))
	for i, p := range s.prospects {
		for _, k := range identityKeys(p) {
			index[k] = i
		}
	}

	var res MergeResult
	for _, np := range incoming {
		keys := identityKeys(np)
		if len(keys) == 0 {
			res.Rejected = append(res.Rejected, &ValidationError{Site: np.SiteName, Reason: "no site name or homepage URL"})
			continue
		}
		if contacted.ContainsAny(keys...) || contacted.ContainsAny(NormalizeURL(np.ContactEmail), NormalizeURL(np.ContactFormURL)) {
			res.Dropped++
			continue
		}

		existing := -1
		for _, k := range keys {
			if i, ok := index[k]; ok {
				existing = i
				break
			}
		}
		if existing >= 0 {
			mergeInto(&s.prospects[existing], np)
			res.Merged++
			continue
		}

		if !np.HasContact() {
			res.Rejected = append(res.Rejected, &ValidationError{Site: np.SiteName, Reason: "no contact email or contact form URL"})
			continue
		}
		s.prospects = append(s.prospects, np)
		for _, k := range identityKeys(np) {
			index[k] = len(s.prospects) - 1
		}
		res.Added++
	}
	return res
}

// mergeInto applies a colliding record onto the stored one: non-identity
// fields are last-write-wins when the new value is present, and contact
// methods the stored record lacks are filled in.
func mergeInto(dst *models.Prospect, src models.Prospect) {
	if src.Relevance != "" {
		dst.Relevance = src.Relevance
	}
	if src.FoundDate != "" && dst.FoundDate == "" {
		dst.FoundDate = src.FoundDate
	}
	if dst.ContactEmail == "" && src.ContactEmail != "" {
		dst.ContactEmail = src.ContactEmail
	}
	if dst.ContactFormURL == "" && src.ContactFormURL != "" {
		dst.ContactFormURL = src.ContactFormURL
	}
	if dst.HomepageURL == "" && src.HomepageURL != "" {
		dst.HomepageURL = src.HomepageURL
	}
}
