// Package dataset reads and writes the pronunciation datasets.
//
// Both datasets are a single JSON object mapping a name to an entry. Reading
// keeps the members in file order so reports can follow the author's layout;
// writing always produces the canonical form: keys in ascending code-point
// order, two-space indentation and non-ASCII text left unescaped.
package dataset

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/zeebo/blake3"
)

// Entry is a single pronunciation record.
// Link is set only for entries scraped from the reference site.
type Entry struct {
	Pronunciation string `json:"pronunciation"`
	Link          string `json:"link,omitempty"`
}

// Field is one top-level member of a dataset object.
type Field struct {
	Name  string
	Value json.RawMessage
}

// Fields holds the members of a dataset in file order.
type Fields []Field

// File is a dataset as loaded from disk.
type File struct {
	Path   string
	Fields Fields
	// Digest is the BLAKE3 hash of the bytes that were read.
	Digest string
}

// Load reads and parses the dataset at path.
// A missing file yields a *NotFoundError, malformed content a *ParseError.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: path, Err: err}
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	fields, err := Decode(bytes.NewReader(data))
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	return &File{Path: path, Fields: fields, Digest: Digest(data)}, nil
}

// Decode parses a JSON object from r, keeping member order.
// A repeated key keeps its first position and its last value.
func Decode(r io.Reader) (Fields, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, &ParseError{Message: "invalid JSON syntax", Err: err}
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, &ParseError{Message: "root element must be a JSON object"}
	}

	var fields Fields
	seen := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, &ParseError{Message: "invalid JSON syntax", Err: err}
		}
		name, ok := tok.(string)
		if !ok {
			return nil, &ParseError{Message: fmt.Sprintf("unexpected token %v", tok)}
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, &ParseError{Message: fmt.Sprintf("invalid value for %q", name), Err: err}
		}
		if i, dup := seen[name]; dup {
			fields[i].Value = value
			continue
		}
		seen[name] = len(fields)
		fields = append(fields, Field{Name: name, Value: value})
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return nil, &ParseError{Message: "invalid JSON syntax", Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &ParseError{Message: "extra data after JSON object"}
	}
	if fields == nil {
		fields = Fields{}
	}
	return fields, nil
}

// Names returns the member names in file order.
func (fields Fields) Names() []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// Map returns the members keyed by name with their values untouched.
func (fields Fields) Map() map[string]json.RawMessage {
	m := make(map[string]json.RawMessage, len(fields))
	for _, f := range fields {
		m[f.Name] = f.Value
	}
	return m
}

// Entries decodes every member that has the shape of an Entry.
// Members that do not decode are left out.
func (fields Fields) Entries() map[string]Entry {
	m := make(map[string]Entry, len(fields))
	for _, f := range fields {
		var e Entry
		if err := json.Unmarshal(f.Value, &e); err != nil {
			continue
		}
		m[f.Name] = e
	}
	return m
}

// Encode renders v in canonical form. v is expected to be a map keyed by
// name; encoding/json emits map keys in sorted order. String escapes that
// stand for printable text, whether written by encoding/json (U+2028,
// U+2029) or carried in a raw value, are replaced by the text itself.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return unescapeText(buf.Bytes()), nil
}

// unescapeText rewrites \uXXXX and \/ escapes in encoded JSON as literal
// characters. Quotes, backslashes, control characters and unpaired
// surrogates keep their escapes. Backslashes only occur inside strings, so
// reading them pairwise never splits an escape.
func unescapeText(data []byte) []byte {
	if bytes.IndexByte(data, '\\') < 0 {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c != '\\' || i+1 == len(data) {
			out = append(out, c)
			continue
		}
		switch next := data[i+1]; next {
		case '/':
			out = append(out, '/')
			i++
		case 'u':
			if r, n := escapedRune(data[i:]); n > 0 {
				out = utf8.AppendRune(out, r)
				i += n - 1
				continue
			}
			out = append(out, c, next)
			i++
		default:
			out = append(out, c, next)
			i++
		}
	}
	return out
}

// escapedRune decodes the \uXXXX escape (or surrogate pair) at the start of
// b. It returns n == 0 when the escape must stay as written.
func escapedRune(b []byte) (r rune, n int) {
	r, ok := hexRune(b)
	if !ok {
		return 0, 0
	}
	if utf16.IsSurrogate(r) {
		if len(b) < 12 || b[6] != '\\' || b[7] != 'u' {
			return 0, 0
		}
		lo, ok := hexRune(b[6:])
		if !ok {
			return 0, 0
		}
		if r = utf16.DecodeRune(r, lo); r == utf8.RuneError {
			return 0, 0
		}
		return r, 12
	}
	if r < 0x20 || r == '"' || r == '\\' {
		return 0, 0
	}
	return r, 6
}

func hexRune(b []byte) (rune, bool) {
	if len(b) < 6 {
		return 0, false
	}
	v, err := strconv.ParseUint(string(b[2:6]), 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}

// Write replaces the file at path with the canonical form of v and returns
// the digest of the bytes written. The file is truncated in place.
func Write(path string, v any) (string, error) {
	data, err := Encode(v)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return Digest(data), nil
}

// Digest returns the hex BLAKE3-256 hash of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
