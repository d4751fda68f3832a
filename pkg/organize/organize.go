// Package organize rewrites both datasets in canonical key order.
package organize

import (
	"fmt"

	"github.com/japaniel/biblespeak/pkg/config"
	"github.com/japaniel/biblespeak/pkg/dataset"
	"github.com/japaniel/biblespeak/pkg/logging"
)

// Counts holds the number of entries in each dataset after organizing.
type Counts struct {
	Auto   int
	Manual int
	// Digests of the rewritten files, keyed like the counts.
	AutoDigest   string
	ManualDigest string
}

// Total is the combined entry count.
func (c Counts) Total() int {
	return c.Auto + c.Manual
}

// Summary is the single line read by the packaging build. Its layout is fixed.
func (c Counts) Summary() string {
	return fmt.Sprintf("BibleSpeak.org: %d; Manual: %d; Total: %d", c.Auto, c.Manual, c.Total())
}

// Organizer sorts the auto and manual datasets in place.
type Organizer struct {
	AutoPath   string
	ManualPath string
}

// New returns an Organizer for the datasets named by cfg.
func New(cfg config.Config) *Organizer {
	return &Organizer{AutoPath: cfg.AutoPath(), ManualPath: cfg.ManualPath()}
}

// Organize loads both files, then rewrites each with sorted keys.
// Both files must exist and parse before either is written.
func (o *Organizer) Organize() (Counts, error) {
	auto, err := dataset.Load(o.AutoPath)
	if err != nil {
		return Counts{}, err
	}
	manual, err := dataset.Load(o.ManualPath)
	if err != nil {
		return Counts{}, err
	}

	autoDigest, err := rewrite(auto)
	if err != nil {
		return Counts{}, err
	}
	manualDigest, err := rewrite(manual)
	if err != nil {
		return Counts{}, err
	}

	return Counts{
		Auto:         len(auto.Fields),
		Manual:       len(manual.Fields),
		AutoDigest:   autoDigest,
		ManualDigest: manualDigest,
	}, nil
}

func rewrite(f *dataset.File) (string, error) {
	digest, err := dataset.Write(f.Path, f.Fields.Map())
	if err != nil {
		return "", err
	}
	if digest == f.Digest {
		logging.Debug("already canonical", "path", f.Path, "entries", len(f.Fields))
	} else {
		logging.Info("file reordered", "path", f.Path, "entries", len(f.Fields))
	}
	return digest, nil
}
