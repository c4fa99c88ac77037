package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spisarov/cadenza/src/assert"
)

// TestDefaultsWithoutUserFile makes sure that a missing user configuration
// file results in the default configuration.
func TestDefaultsWithoutUserFile(t *testing.T) {
	userPath := t.TempDir()

	cfg, err := FindAndParse(userPath)
	assert.NilErr(t, err)

	assert.Equal(t, userPath, cfg.UserPath)
	assert.Equal(t, "cadenza.db", cfg.SqliteDatabase)
	assert.Equal(t, "aubio", cfg.Analysis.Tool)
	assert.Equal(t, 1, cfg.Analysis.Concurrency)
	assert.Equal(t, 0.15, cfg.Analysis.MinConfidence)
}

// TestUserFileMergedOverDefaults checks that values present in the user file
// replace the defaults while everything else keeps its default value.
func TestUserFileMergedOverDefaults(t *testing.T) {
	userPath := t.TempDir()

	userCfg := `{
		"libraries": ["/mnt/music"],
		"analysis": {
			"tool": "/usr/local/bin/aubio",
			"concurrency": 2,
			"tempo_timeout_sec": 60,
			"pitch_timeout_sec": 300,
			"cache_file": "analysis-cache.json",
			"min_confidence": 0.2
		}
	}`

	err := os.WriteFile(filepath.Join(userPath, ConfigName), []byte(userCfg), 0644)
	assert.NilErr(t, err)

	cfg, err := FindAndParse(userPath)
	assert.NilErr(t, err)

	assert.Equal(t, 1, len(cfg.Libraries))
	assert.Equal(t, "/mnt/music", cfg.Libraries[0])
	assert.Equal(t, "/usr/local/bin/aubio", cfg.Analysis.Tool)
	assert.Equal(t, 2, cfg.Analysis.Concurrency)
	assert.Equal(t, 0.2, cfg.Analysis.MinConfidence)

	// Not mentioned in the user file, should stay at its default.
	assert.Equal(t, "cadenza.db", cfg.SqliteDatabase)
}

// TestMalformedUserFile makes sure that a broken configuration file results
// in an error instead of silently used defaults.
func TestMalformedUserFile(t *testing.T) {
	userPath := t.TempDir()

	err := os.WriteFile(
		filepath.Join(userPath, ConfigName),
		[]byte("{not really JSON"),
		0644,
	)
	assert.NilErr(t, err)

	if _, err := FindAndParse(userPath); err == nil {
		t.Errorf("expected an error for malformed configuration file")
	}
}
