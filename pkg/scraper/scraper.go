// Package scraper builds the auto dataset from the reference site.
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/japaniel/biblespeak/pkg/config"
	"github.com/japaniel/biblespeak/pkg/dataset"
	"github.com/japaniel/biblespeak/pkg/logging"
	"github.com/japaniel/biblespeak/pkg/page"
)

// PageFetcher abstracts page downloads so tests can serve fixtures.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Scraper walks the letter index pages and each listed name's detail page.
//
// Any failure on an index page aborts the run. On a detail page only a
// missing pronunciation (or a non-200 answer) is tolerated: that name is
// left out and the run continues.
type Scraper struct {
	Base       string
	Letters    string
	OutputPath string
	Fetcher    PageFetcher
	Parser     page.Parser
	// OnProgress is called after each letter with its 1-based position.
	OnProgress func(letter string, index, total, found int, elapsed time.Duration)
}

// Result summarises a completed update.
type Result struct {
	Entries map[string]dataset.Entry
	Digest  string
}

// New wires a Scraper from cfg with the HTTP fetcher and the biblespeak.org parser.
func New(cfg config.Config) *Scraper {
	return &Scraper{
		Base:       cfg.Base(),
		Letters:    cfg.Letters,
		OutputPath: cfg.AutoPath(),
		Fetcher:    NewFetcher(cfg.UserAgent, cfg.Timeout),
		Parser:     page.BibleSpeak{},
		OnProgress: logging.Progress,
	}
}

// IndexURL is the page listing names that start with letter.
func (s *Scraper) IndexURL(letter string) string {
	return fmt.Sprintf("%s/%s-words/", s.Base, strings.ToLower(letter))
}

// DetailURL is the page for a single name. It doubles as the entry's link.
// The name is path-escaped, so a space or '?' stays part of the path.
func (s *Scraper) DetailURL(name string) string {
	return fmt.Sprintf("%s/%s-pronunciation/", s.Base, url.PathEscape(name))
}

// Run scrapes every letter and returns the collected entries.
func (s *Scraper) Run(ctx context.Context) (map[string]dataset.Entry, error) {
	data := make(map[string]dataset.Entry)
	letters := []rune(s.Letters)
	start := time.Now()

	for i, r := range letters {
		letter := string(r)
		names, err := s.names(ctx, letter)
		if err != nil {
			return nil, err
		}
		logging.Debug("index page parsed", "letter", strings.ToUpper(letter), "names", len(names))

		for _, name := range names {
			pron, err := s.pronunciation(ctx, name)
			if errors.Is(err, errSkip) {
				continue
			}
			if err != nil {
				return nil, err
			}
			data[name] = dataset.Entry{
				Pronunciation: pron,
				Link:          s.DetailURL(name),
			}
		}

		if s.OnProgress != nil {
			s.OnProgress(strings.ToUpper(letter), i+1, len(letters), len(names), time.Since(start))
		}
	}
	return data, nil
}

// Update runs a full scrape and replaces the output file in one write.
// Nothing is written when the scrape fails.
func (s *Scraper) Update(ctx context.Context) (Result, error) {
	data, err := s.Run(ctx)
	if err != nil {
		return Result{}, err
	}
	digest, err := dataset.Write(s.OutputPath, data)
	if err != nil {
		return Result{}, err
	}
	logging.Info("update complete", "path", s.OutputPath, "entries", len(data))
	return Result{Entries: data, Digest: digest}, nil
}

func (s *Scraper) names(ctx context.Context, letter string) ([]string, error) {
	body, err := s.Fetcher.Fetch(ctx, s.IndexURL(letter))
	if err != nil {
		return nil, fmt.Errorf("letter %s: %w", strings.ToUpper(letter), err)
	}
	names, err := s.Parser.Names(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("letter %s: %w", strings.ToUpper(letter), err)
	}
	return names, nil
}

var errSkip = errors.New("skip name")

func (s *Scraper) pronunciation(ctx context.Context, name string) (string, error) {
	body, err := s.Fetcher.Fetch(ctx, s.DetailURL(name))
	if errors.Is(err, ErrStatus) {
		logging.Debug("skipping name", "name", name, "reason", err)
		return "", errSkip
	}
	if err != nil {
		return "", fmt.Errorf("name %q: %w", name, err)
	}
	pron, err := s.Parser.Pronunciation(bytes.NewReader(body))
	if err != nil {
		logging.Debug("skipping name", "name", name, "reason", err)
		return "", errSkip
	}
	return pron, nil
}
