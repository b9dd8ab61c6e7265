package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdouEl-Ghazali/link-builder/internal/config"
	"github.com/AbdouEl-Ghazali/link-builder/internal/logging"
	"github.com/AbdouEl-Ghazali/link-builder/internal/models"
	"github.com/AbdouEl-Ghazali/link-builder/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "no-such.yaml"))
	require.NoError(t, err)
	cfg.Data.Dir = dir
	return cfg
}

func TestRunAllMergesNewProspectsWhenPresent(t *testing.T) {
	cfg := testConfig(t)
	incoming := []models.Prospect{{
		SiteName:     "Fashion Blog",
		HomepageURL:  "https://fashionblog.com",
		ContactEmail: "a@fashionblog.com",
		Relevance:    "guest posts about sustainable fashion",
	}}
	require.NoError(t, store.WriteJSON(cfg.Path("new_prospects.json"), incoming))

	require.NoError(t, runAll(context.Background(), cfg, logging.New("error")))

	prospects, err := store.OpenProspects(cfg.Path(cfg.Data.Prospects))
	require.NoError(t, err)
	assert.Equal(t, 1, prospects.Len(), "pending discoveries are folded in before compiling")
}

func TestRunAllWithoutPendingInput(t *testing.T) {
	cfg := testConfig(t)

	require.NoError(t, runAll(context.Background(), cfg, logging.New("error")))

	prospects, err := store.OpenProspects(cfg.Path(cfg.Data.Prospects))
	require.NoError(t, err)
	assert.Equal(t, 0, prospects.Len())
}
