package compiler

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdouEl-Ghazali/link-builder/internal/models"
)

var testProspect = models.Prospect{
	SiteName:     "Fashion Blog",
	HomepageURL:  "https://fashionblog.com",
	ContactEmail: "a@fashionblog.com",
	Relevance:    "guest posts about sustainable fashion",
}

var testItem = models.ContentItem{
	Title:   "Sustainable Fabrics 101",
	URL:     "https://build-a-dress.com/blog/sustainable-fabrics",
	Summary: "A practical guide to choosing low-impact fabrics.",
	Topics:  []string{"sustainable fashion"},
}

var testMatch = models.Match{
	ProspectSite: "Fashion Blog",
	ContentURL:   testItem.URL,
	ContentTitle: testItem.Title,
	Score:        2,
}

func newTestCompiler() *Compiler {
	return New(Config{BusinessName: "Build A Dress", BlogURL: "https://build-a-dress.com/blog", SenderName: "Ava"})
}

func TestCompileReferencesRequiredParts(t *testing.T) {
	t.Parallel()

	msg := newTestCompiler().Compile(testMatch, testProspect, testItem)

	assert.Equal(t, "a@fashionblog.com", msg.To)
	assert.Equal(t, testItem.URL, msg.MatchedContentURL, "structural fields must mirror the match")
	assert.Equal(t, testItem.Title, msg.MatchedContentTitle)
	assert.NotEmpty(t, msg.ID)

	assert.Contains(t, msg.Subject, "Fashion Blog")
	assert.Contains(t, msg.Body, "Fashion Blog")
	assert.Contains(t, msg.Body, testItem.Title)
	assert.Contains(t, msg.Body, testItem.URL)
	assert.Contains(t, msg.Body, "sustainable fashion", "a detail from the relevance text must appear")
}

func TestCompileStripsHaroPrefix(t *testing.T) {
	t.Parallel()

	p := testProspect
	p.Relevance = "HARO request: Looking for experts on sustainable fabrics... (Keywords: fashion, fabrics)"
	msg := newTestCompiler().Compile(testMatch, p, testItem)

	assert.NotContains(t, msg.Body, "HARO request:")
	assert.NotContains(t, msg.Body, "(Keywords:")
	assert.Contains(t, strings.ToLower(msg.Body), "looking for experts on sustainable fabrics")
}

func TestCompileKeepsValidUTF8WhenTruncating(t *testing.T) {
	t.Parallel()

	p := testProspect
	// Multibyte relevance text longer than the detail cap; a byte-level cut
	// would land mid-rune.
	p.Relevance = strings.Repeat("世", 100)
	msg := newTestCompiler().Compile(testMatch, p, testItem)

	assert.True(t, utf8.ValidString(msg.Body))
}

func TestCompileBatchRejectsDuplicates(t *testing.T) {
	t.Parallel()

	// The same match compiled twice produces byte-identical subject+body
	// pairs, the signature of a templating failure.
	prospects := map[string]models.Prospect{"Fashion Blog": testProspect}
	matches := []models.Match{testMatch, testMatch}
	lookup := func(url string) (models.ContentItem, bool) { return testItem, url == testItem.URL }

	msgs, rejected := newTestCompiler().CompileBatch(matches, prospects, lookup)
	assert.Empty(t, msgs, "both identical copies must be rejected, not one kept")
	require.Len(t, rejected, 2)
	assert.Contains(t, rejected[0], "duplicate subject+body")
}

func TestCompileBatchKeepsDistinctMessages(t *testing.T) {
	t.Parallel()

	other := models.Prospect{
		SiteName:     "Eco Living",
		ContactEmail: "hi@ecoliving.org",
		Relevance:    "covers eco-friendly home topics",
	}
	prospects := map[string]models.Prospect{
		"Fashion Blog": testProspect,
		"Eco Living":   other,
	}
	matches := []models.Match{
		testMatch,
		{ProspectSite: "Eco Living", ContentURL: testItem.URL, ContentTitle: testItem.Title, Score: 1},
	}
	lookup := func(url string) (models.ContentItem, bool) { return testItem, url == testItem.URL }

	msgs, rejected := newTestCompiler().CompileBatch(matches, prospects, lookup)
	assert.Len(t, msgs, 2)
	assert.Empty(t, rejected)
}

func TestCompileBatchReportsMissingSources(t *testing.T) {
	t.Parallel()

	matches := []models.Match{{ProspectSite: "Ghost Site", ContentURL: "https://x.com/missing"}}
	msgs, rejected := newTestCompiler().CompileBatch(matches, map[string]models.Prospect{}, func(string) (models.ContentItem, bool) {
		return models.ContentItem{}, false
	})
	assert.Empty(t, msgs)
	require.Len(t, rejected, 1)
	assert.Contains(t, rejected[0], "prospect missing")
}
