// Package config is resposible for finding and parsing the Cadenza user
// configuration and merging it over the defaults.
//
// The configuration file is a JSON document at $HOME/.cadenza/config.json.
// Every value which is not present in the user file keeps its default.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ConfigName is the name of the user configuration file inside the user path.
const ConfigName = "config.json"

// Config contains a representation for everything in config.json.
type Config struct {
	Libraries      []string       `json:"libraries"`
	UserPath       string         `json:"user_path"`
	LogFile        string         `json:"log_file"`
	SqliteDatabase string         `json:"sqlite_database"`
	Analysis       AnalysisConfig `json:"analysis"`
}

// AnalysisConfig groups all settings of the offline BPM/key analysis
// pipeline. The zero value is not usable, use Default() for a starting
// point.
type AnalysisConfig struct {
	// Disabled turns off the analysis pipeline altogether. Scanning still
	// works, tracks just never receive BPM and key values.
	Disabled bool `json:"disabled"`

	// Tool is the name of (or path to) the aubio binary.
	Tool string `json:"tool"`

	// Concurrency is the number of analysis jobs which may run at the same
	// time. Kept at 1 by default so that analysis does not fight the library
	// scan for CPU and disk.
	Concurrency int `json:"concurrency"`

	// CacheFile is the path to the JSON analysis results cache. When
	// relative it is resolved against the user path.
	CacheFile string `json:"cache_file"`

	// TempoTimeoutSec and PitchTimeoutSec are the wall-clock limits for the
	// two external tool invocations. Pitch tracking scans the whole file so
	// its limit is considerably larger.
	TempoTimeoutSec int `json:"tempo_timeout_sec"`
	PitchTimeoutSec int `json:"pitch_timeout_sec"`

	// MinConfidence is the least combined confidence for which analysis
	// results are accepted. Low confidence guesses are worse than no data.
	MinConfidence float64 `json:"min_confidence"`
}

// Default returns the configuration which is used when the user has not
// configured anything.
func Default() Config {
	return Config{
		SqliteDatabase: "cadenza.db",
		Analysis: AnalysisConfig{
			Tool:            "aubio",
			Concurrency:     1,
			CacheFile:       "analysis-cache.json",
			TempoTimeoutSec: 60,
			PitchTimeoutSec: 300,
			MinConfidence:   0.15,
		},
	}
}

// FindAndParse returns the configuration from the user path merged over the
// defaults. A missing user configuration file is not an error, the defaults
// are returned in that case.
func FindAndParse(userPath string) (Config, error) {
	cfg := Default()
	cfg.UserPath = userPath

	cfgPath := filepath.Join(userPath, ConfigName)
	contents, err := os.ReadFile(cfgPath)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading configuration file: %w", err)
	}

	// Unmarshalling over the already populated struct means that values
	// missing from the user file keep their defaults.
	if err := json.Unmarshal(contents, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", cfgPath, err)
	}

	if cfg.UserPath == "" {
		cfg.UserPath = userPath
	}

	return cfg, nil
}
