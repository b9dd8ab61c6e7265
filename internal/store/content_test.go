package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdouEl-Ghazali/link-builder/internal/models"
)

func TestIndexContentLastWriteWins(t *testing.T) {
	t.Parallel()

	idx := IndexContent([]models.ContentItem{
		{Title: "Old Title", URL: "https://x.com/a", Topics: []string{"old"}},
		{Title: "Other", URL: "https://x.com/b", Topics: []string{"other"}},
		{Title: "New Title", URL: "https://x.com/a", Topics: []string{"new"}},
	})

	require.Equal(t, 2, idx.Len())
	got, ok := idx.Get("https://x.com/a")
	require.True(t, ok)
	assert.Equal(t, "New Title", got.Title)
	// First-appearance order is retained for deterministic tie-breaks.
	assert.Equal(t, "https://x.com/a", idx.Items()[0].URL)
}

func TestAllTopics(t *testing.T) {
	t.Parallel()

	idx := IndexContent([]models.ContentItem{
		{URL: "https://x.com/a", Topics: []string{"Sustainable Fashion", "eco-friendly materials"}},
	})

	topics := idx.AllTopics()
	assert.Contains(t, topics, "sustainable fashion")
	assert.Contains(t, topics, "sustainable")
	assert.Contains(t, topics, "fashion")
	assert.Contains(t, topics, "eco-friendly materials")
	// Sorted, so repeated calls are stable.
	assert.IsIncreasing(t, topics)
}
