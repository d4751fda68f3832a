// Package validate checks the hand-authored dataset before it is packaged.
//
// Problems come in two severities. Errors are structural (wrong type, a
// missing or empty pronunciation, a link field) and fail validation.
// Warnings flag pronunciations that do not look like the site's style and
// never fail validation.
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/japaniel/biblespeak/pkg/config"
	"github.com/japaniel/biblespeak/pkg/dataset"
)

// Problem is one finding for a named entry.
type Problem struct {
	Name    string
	Message string
}

func (p Problem) String() string {
	return fmt.Sprintf("  %s: %s", p.Name, p.Message)
}

// Report is the outcome of validating a dataset file.
type Report struct {
	Path     string
	Missing  bool
	Entries  int
	Errors   []Problem
	Warnings []Problem
}

// OK reports whether validation passed.
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

// Write prints the report in the operator-facing layout.
func (r *Report) Write(w io.Writer) {
	if r.Missing {
		fmt.Fprintf(w, "[OK] %s not found (optional file)\n", r.Path)
		return
	}
	fmt.Fprintf(w, "Validating %s...\n", r.Path)

	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "\n[ERROR] Validation failed with %d error(s):\n\n", len(r.Errors))
		for _, p := range r.Errors {
			fmt.Fprintln(w, p)
		}
		return
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(w, "\n[WARNING] Validation passed with %d warning(s):\n\n", len(r.Warnings))
		for _, p := range r.Warnings {
			fmt.Fprintln(w, p)
		}
		fmt.Fprintln(w, "\nWarnings do not prevent packaging, but check pronunciation formatting.")
	}
	fmt.Fprintf(w, "\n[OK] Validation passed: %d entries validated successfully\n", r.Entries)
}

// Validator checks the manual dataset.
type Validator struct {
	Path string
}

// New returns a Validator for the manual dataset named by cfg.
func New(cfg config.Config) *Validator {
	return &Validator{Path: cfg.ManualPath()}
}

// Validate loads and checks the dataset. An absent file is a passing report.
// A returned error means the file could not be read as a JSON object and no
// entries were checked.
func (v *Validator) Validate() (*Report, error) {
	r := &Report{Path: v.Path}

	f, err := dataset.Load(v.Path)
	if errors.Is(err, dataset.ErrNotFound) {
		r.Missing = true
		return r, nil
	}
	if err != nil {
		return nil, err
	}

	r.Entries = len(f.Fields)
	for _, field := range f.Fields {
		pron, problem := CheckEntry(field.Value)
		if problem != "" {
			r.Errors = append(r.Errors, Problem{Name: field.Name, Message: problem})
			continue
		}
		for _, msg := range CheckFormat(pron) {
			r.Warnings = append(r.Warnings, Problem{Name: field.Name, Message: msg})
		}
	}
	return r, nil
}

// CheckEntry returns the entry's pronunciation, or the first structural
// problem found in raw.
func CheckEntry(raw json.RawMessage) (string, string) {
	raw = bytes.TrimSpace(raw)
	var fields map[string]json.RawMessage
	if len(raw) == 0 || raw[0] != '{' || json.Unmarshal(raw, &fields) != nil {
		return "", "Value must be an object/dictionary"
	}

	value, ok := fields["pronunciation"]
	if !ok {
		return "", "Missing required field 'pronunciation'"
	}
	var pron string
	value = bytes.TrimSpace(value)
	if len(value) == 0 || value[0] != '"' || json.Unmarshal(value, &pron) != nil {
		return "", "'pronunciation' must be a string"
	}
	if strings.TrimSpace(pron) == "" {
		return "", "'pronunciation' cannot be empty"
	}
	if _, ok := fields["link"]; ok {
		return "", "Manual entries should not have 'link' field (reserved for auto-scraped data)"
	}
	return pron, ""
}

// CheckFormat returns style warnings for a pronunciation.
func CheckFormat(pron string) []string {
	var warnings []string

	if !strings.Contains(pron, "-") && utf8.RuneCountInString(pron) > 4 {
		warnings = append(warnings, "Missing hyphens for syllable separation")
	}
	if uniformCase(pron) {
		warnings = append(warnings, "Should use mixed case (CAPS for stressed syllables)")
	}
	if bad := unexpectedChars(pron); len(bad) > 0 {
		warnings = append(warnings, "Contains unexpected characters: "+strings.Join(bad, ", "))
	}
	return warnings
}

// uniformCase reports whether s has cased letters and they are all upper or
// all lower. A titlecase letter such as U+01C5 is neither, so it rules both out.
func uniformCase(s string) bool {
	var upper, lower, title bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsTitle(r):
			title = true
		}
	}
	return !title && upper != lower
}

func unexpectedChars(s string) []string {
	seen := make(map[rune]struct{})
	for _, r := range s {
		if r == '-' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			continue
		}
		seen[r] = struct{}{}
	}
	runes := make([]rune, 0, len(seen))
	for r := range seen {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })

	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = strconv.QuoteRune(r)
	}
	return out
}
