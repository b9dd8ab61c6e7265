package outreach

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdouEl-Ghazali/link-builder/internal/models"
)

func tempLog(t *testing.T) (*SubmissionLog, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "outreach_log.csv")
	l, err := OpenLog(path)
	require.NoError(t, err)
	return l, path
}

func TestAppendWritesHeaderOnce(t *testing.T) {
	t.Parallel()

	l, path := tempLog(t)
	require.NoError(t, l.Append(models.LogEntry{Site: "Fashion Blog", Contact: "a@fashionblog.com", Status: models.StatusSent, Notes: "ok"}))
	require.NoError(t, l.Append(models.LogEntry{Site: "Eco Living", Contact: "b@ecoliving.org", Status: models.StatusFailed, Notes: "smtp error"}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,site,contact,status,notes", lines[0])
	assert.Equal(t, 1, strings.Count(string(b), "timestamp,site"))
}

func TestIsContactedOnlyForTerminalStatuses(t *testing.T) {
	t.Parallel()

	l, _ := tempLog(t)
	require.NoError(t, l.Append(models.LogEntry{Site: "A", Contact: "a@a.com", Status: models.StatusFailed, Notes: "domain"}))
	require.NoError(t, l.Append(models.LogEntry{Site: "B", Contact: "b@b.com", Status: models.StatusSkipped, Notes: "no email"}))
	require.NoError(t, l.Append(models.LogEntry{Site: "C", Contact: "c@c.com", Status: models.StatusSent, Notes: "ok"}))
	require.NoError(t, l.Append(models.LogEntry{Site: "D", Contact: "d@d.com", Status: models.StatusOpened, Notes: "tracked"}))

	assert.False(t, l.IsContacted("A", "a@a.com"), "failed never blocks a retry")
	assert.False(t, l.IsContacted("B", "b@b.com"), "skipped never blocks a retry")
	assert.True(t, l.IsContacted("C", "c@c.com"))
	assert.True(t, l.IsContacted("D", "d@d.com"))
	assert.True(t, l.IsContacted("c", "C@C.COM"), "dedup key is case-insensitive")
}

func TestReopenPreservesRowsAndDedup(t *testing.T) {
	t.Parallel()

	l, path := tempLog(t)
	require.NoError(t, l.Append(models.LogEntry{Timestamp: time.Now(), Site: "Fashion Blog", Contact: "a@fashionblog.com", Status: models.StatusSent, Notes: "ok"}))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	reopened, err := OpenLog(path)
	require.NoError(t, err)
	assert.True(t, reopened.IsContacted("Fashion Blog", "a@fashionblog.com"))
	assert.Equal(t, 1, reopened.Rows())

	// Appending through the reopened log only adds; prior bytes are intact.
	require.NoError(t, reopened.Append(models.LogEntry{Site: "Eco Living", Contact: "b@ecoliving.org", Status: models.StatusSkipped, Notes: "later"}))
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(after), string(before)), "append-only: existing rows never rewritten")
}

func TestAppendQuotesFieldsWithCommas(t *testing.T) {
	t.Parallel()

	l, path := tempLog(t)
	require.NoError(t, l.Append(models.LogEntry{Site: "Fashion, Inc.", Contact: "a@f.com", Status: models.StatusFailed, Notes: `domain "f.com" not found, giving up`}))

	reopened, err := OpenLog(path)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Rows())
}

func TestContactedIdentities(t *testing.T) {
	t.Parallel()

	l, _ := tempLog(t)
	require.NoError(t, l.Append(models.LogEntry{Site: "Fashion Blog", Contact: "https://www.FashionBlog.com/contact/", Status: models.StatusSent, Notes: "form"}))

	ids := l.ContactedIdentities()
	assert.True(t, ids.ContainsAny("fashion blog"))
	assert.True(t, ids.ContainsAny("fashionblog.com/contact"))
}
