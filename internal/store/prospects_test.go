package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdouEl-Ghazali/link-builder/internal/models"
)

func prospect(site, url, email string) models.Prospect {
	return models.Prospect{
		SiteName:     site,
		HomepageURL:  url,
		ContactEmail: email,
		Relevance:    "guest posts about sustainable fashion",
		FoundDate:    "2026-08-01",
	}
}

func TestMergeDedupsByURLCasing(t *testing.T) {
	t.Parallel()

	s := &ProspectStore{}
	batch1 := []models.Prospect{prospect("Fashion Blog", "https://fashionblog.com", "a@fashionblog.com")}
	batch2 := []models.Prospect{prospect("fashion blog weekly", "HTTPS://WWW.FashionBlog.com/", "a@fashionblog.com")}

	res := s.Merge(batch1, IdentitySet{})
	require.Equal(t, 1, res.Added)
	res = s.Merge(batch2, IdentitySet{})
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 1, res.Merged)
	assert.Equal(t, 1, s.Len(), "same homepage in different casing must collapse to one record")
}

func TestMergeIdempotent(t *testing.T) {
	t.Parallel()

	batch := []models.Prospect{
		prospect("Fashion Blog", "https://fashionblog.com", "a@fashionblog.com"),
		prospect("Eco Style", "https://ecostyle.org", "hello@ecostyle.org"),
	}

	once := &ProspectStore{}
	once.Merge(batch, IdentitySet{})

	twice := &ProspectStore{}
	twice.Merge(batch, IdentitySet{})
	twice.Merge(batch, IdentitySet{})

	assert.Equal(t, once.All(), twice.All(), "merging the same batch twice must equal merging once")
}

func TestMergePreservesOrder(t *testing.T) {
	t.Parallel()

	s := &ProspectStore{}
	s.Merge([]models.Prospect{
		prospect("First", "https://first.com", "a@first.com"),
		prospect("Second", "https://second.com", "a@second.com"),
	}, IdentitySet{})
	s.Merge([]models.Prospect{
		prospect("Second", "https://second.com", "a@second.com"),
		prospect("Third", "https://third.com", "a@third.com"),
	}, IdentitySet{})

	var names []string
	for _, p := range s.All() {
		names = append(names, p.SiteName)
	}
	assert.Equal(t, []string{"First", "Second", "Third"}, names)
}

func TestMergeRejectsWithoutContact(t *testing.T) {
	t.Parallel()

	s := &ProspectStore{}
	res := s.Merge([]models.Prospect{
		{SiteName: "No Contact Site", HomepageURL: "https://nocontact.com", Relevance: "x"},
	}, IdentitySet{})

	require.Len(t, res.Rejected, 1)
	var verr *ValidationError
	require.ErrorAs(t, res.Rejected[0], &verr)
	assert.Equal(t, 0, s.Len())
}

func TestMergeDropsContactedIdentities(t *testing.T) {
	t.Parallel()

	contacted := IdentitySet{}
	contacted.Add(NormalizeSite("Fashion Blog"))

	s := &ProspectStore{}
	res := s.Merge([]models.Prospect{prospect("FASHION BLOG", "https://fashionblog.com", "a@fashionblog.com")}, contacted)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, 0, s.Len())
}

func TestMergeUnionsContactMethods(t *testing.T) {
	t.Parallel()

	s := &ProspectStore{}
	s.Merge([]models.Prospect{prospect("Fashion Blog", "https://fashionblog.com", "a@fashionblog.com")}, IdentitySet{})
	s.Merge([]models.Prospect{{
		SiteName:       "Fashion Blog",
		HomepageURL:    "https://fashionblog.com",
		ContactFormURL: "https://fashionblog.com/contact",
		Relevance:      "runs a weekly sustainable style roundup",
	}}, IdentitySet{})

	require.Equal(t, 1, s.Len())
	got := s.All()[0]
	assert.Equal(t, "a@fashionblog.com", got.ContactEmail, "existing contact method kept")
	assert.Equal(t, "https://fashionblog.com/contact", got.ContactFormURL, "new contact method unioned in")
	assert.Equal(t, "runs a weekly sustainable style roundup", got.Relevance, "relevance is last-write-wins")
}

func TestSaveAndReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prospects.json")
	s, err := OpenProspects(path)
	require.NoError(t, err)
	s.Merge([]models.Prospect{prospect("Fashion Blog", "https://fashionblog.com", "a@fashionblog.com")}, IdentitySet{})
	require.NoError(t, s.Save())

	reopened, err := OpenProspects(path)
	require.NoError(t, err)
	assert.Equal(t, s.All(), reopened.All())

	// No stray temp files left behind by the atomic replace.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "fashionblog.com", NormalizeURL("HTTPS://www.FashionBlog.com/"))
	assert.Equal(t, "fashionblog.com/blog", NormalizeURL("http://fashionblog.com/blog/"))
	assert.Equal(t, "", NormalizeURL(""))
}
