// Package config holds the settings shared by the scraper, validator and organizer.
package config

import (
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultBaseURL    = "https://biblespeak.org"
	DefaultAutoFile   = "names_pronunciations.json"
	DefaultManualFile = "manual_pronunciations.json"
	DefaultLetters    = "abcdefghijklmnopqrstuvwxyz"

	// Mimic a desktop browser so the site serves its regular markup.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config is passed explicitly to each component; nothing reads process-wide state.
type Config struct {
	BaseURL    string
	Letters    string
	Dir        string
	AutoFile   string
	ManualFile string
	// DBPath enables the run ledger when non-empty.
	DBPath    string
	UserAgent string
	// Timeout of zero means no client timeout.
	Timeout time.Duration
}

// Default returns the configuration used when no flags or environment overrides are given.
func Default() Config {
	return Config{
		BaseURL:    DefaultBaseURL,
		Letters:    DefaultLetters,
		Dir:        ".",
		AutoFile:   DefaultAutoFile,
		ManualFile: DefaultManualFile,
		UserAgent:  DefaultUserAgent,
	}
}

// Base returns BaseURL without a trailing slash.
func (c Config) Base() string {
	return strings.TrimRight(c.BaseURL, "/")
}

// AutoPath is the location of the scraped dataset.
func (c Config) AutoPath() string {
	return filepath.Join(c.Dir, c.AutoFile)
}

// ManualPath is the location of the hand-authored dataset.
func (c Config) ManualPath() string {
	return filepath.Join(c.Dir, c.ManualFile)
}
