// Package page extracts names and pronunciations from reference-site HTML.
//
// All knowledge of the site's markup lives here so the scraper can be tested
// against fixtures and the selectors can change without touching orchestration.
package page

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/go-shiori/dom"
	"golang.org/x/net/html"
)

// ErrNoPronunciation is returned when a detail page has no usable pronunciation region.
var ErrNoPronunciation = errors.New("pronunciation not found")

// Parser extracts data from the two kinds of page the scraper reads.
type Parser interface {
	// Names returns the candidate names listed on a letter index page.
	Names(r io.Reader) ([]string, error)
	// Pronunciation returns the pronunciation shown on a name's detail page.
	Pronunciation(r io.Reader) (string, error)
}

var (
	selAriaLabel     = cascadia.MustCompile("a[aria-label]")
	selTitle         = cascadia.MustCompile("h2.title")
	selPronunciation = cascadia.MustCompile(".col.span_6.audioright")
)

// BibleSpeak parses pages from biblespeak.org.
type BibleSpeak struct{}

// Names collects anchor aria-labels and h2.title headings, trimmed,
// de-duplicated and sorted.
func (BibleSpeak) Names(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse index page: %w", err)
	}

	seen := make(map[string]struct{})
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		seen[name] = struct{}{}
	}

	for _, a := range selAriaLabel.MatchAll(doc) {
		add(dom.GetAttribute(a, "aria-label"))
	}
	for _, h := range selTitle.MatchAll(doc) {
		add(dom.TextContent(h))
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Pronunciation reads the audio region of a detail page. The region's text
// is a label line followed by the pronunciation, so the second line is used.
func (BibleSpeak) Pronunciation(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse detail page: %w", err)
	}

	region := selPronunciation.MatchFirst(doc)
	if region == nil {
		return "", ErrNoPronunciation
	}

	lines := strings.Split(strings.TrimSpace(dom.TextContent(region)), "\n")
	if len(lines) < 2 {
		return "", ErrNoPronunciation
	}
	pron := strings.TrimSpace(lines[1])
	if pron == "" {
		return "", ErrNoPronunciation
	}
	return pron, nil
}
