// Package route classifies request paths against the static route table.
//
// Matching is case-insensitive using an ASCII-only fold: bytes 'A'..'Z' map to
// 'a'..'z' and every other byte, including UTF-8 sequences, compares as is.
// The fold does not depend on locale or Unicode case tables.
package route

import (
	"errors"
	"fmt"
	"strings"
)

// MatchKind selects how an Entry is compared against a request path.
type MatchKind int

const (
	// MatchExact matches the root entry only: "" or "/".
	MatchExact MatchKind = iota
	// MatchPrefix matches the prefix itself or anything nested under it.
	MatchPrefix
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchPrefix:
		return "prefix"
	default:
		return "unknown"
	}
}

// Target is the origin chosen for a request.
type Target int

const (
	Dynamic Target = iota
	Static
)

func (t Target) String() string {
	if t == Static {
		return "static"
	}
	return "dynamic"
}

// Label values returned by Table.Label for paths that do not hit a static entry.
const (
	LabelDynamic     = "dynamic"
	LabelDynamicOnly = "dynamic_only"
)

// Entry is one configured route. Prefix keeps the configured casing, which is
// what the static origin expects in its URLs.
type Entry struct {
	Prefix string
	Kind   MatchKind

	folded string
}

// IsRoot reports whether the entry is the exact-match root entry.
func (e Entry) IsRoot() bool {
	return e.Kind == MatchExact
}

// Match reports whether path falls under the entry. On a prefix match the
// returned suffix is the part of path following the prefix, in its original
// casing; it is empty when path equals the prefix.
func (e Entry) Match(path string) (suffix string, ok bool) {
	if e.Kind == MatchExact {
		return "", path == "" || path == "/"
	}
	if len(path) < len(e.folded) || Fold(path[:len(e.folded)]) != e.folded {
		return "", false
	}
	rest := path[len(e.folded):]
	if rest == "" || rest[0] == '/' {
		return rest, true
	}
	return "", false
}

// Decision is the outcome of classifying a path. Route and Suffix are only
// meaningful when Target is Static.
type Decision struct {
	Target Target
	Route  Entry
	Suffix string
}

// Table is the immutable route table. It is built once at start-up and is safe
// for concurrent use.
type Table struct {
	static      []Entry
	dynamicOnly []Entry
}

// ErrInvalidPrefix is returned for configured prefixes that are empty or do
// not start with '/'.
var ErrInvalidPrefix = errors.New("route prefix must start with '/'")

// NewTable builds a Table from the ordered static prefixes and the dynamic-only
// deny-list. "/" in the static list becomes the exact-match root entry.
// Trailing slashes on other prefixes are dropped.
func NewTable(static, dynamicOnly []string) (*Table, error) {
	s, err := buildEntries(static, true)
	if err != nil {
		return nil, fmt.Errorf("static routes: %w", err)
	}
	d, err := buildEntries(dynamicOnly, false)
	if err != nil {
		return nil, fmt.Errorf("dynamic_only routes: %w", err)
	}
	return &Table{static: s, dynamicOnly: d}, nil
}

func buildEntries(prefixes []string, allowRoot bool) ([]Entry, error) {
	entries := make([]Entry, 0, len(prefixes))
	seen := make(map[string]bool, len(prefixes))
	for _, raw := range prefixes {
		p := strings.TrimSpace(raw)
		if p == "" || p[0] != '/' {
			return nil, fmt.Errorf("%w: got %q", ErrInvalidPrefix, raw)
		}

		var e Entry
		if p == "/" {
			if !allowRoot {
				return nil, fmt.Errorf("root %q cannot be listed here", raw)
			}
			e = Entry{Prefix: "/", Kind: MatchExact, folded: "/"}
		} else {
			p = strings.TrimRight(p, "/")
			e = Entry{Prefix: p, Kind: MatchPrefix, folded: Fold(p)}
		}

		if seen[e.folded] {
			return nil, fmt.Errorf("duplicate route %q", raw)
		}
		seen[e.folded] = true
		entries = append(entries, e)
	}
	return entries, nil
}

// Classify picks the origin for path. Deny-listed paths are always Dynamic,
// even when a static prefix also matches. Static entries are tried in
// configured order and the first match wins.
func (t *Table) Classify(path string) Decision {
	if t.Denied(path) {
		return Decision{Target: Dynamic}
	}
	for _, e := range t.static {
		if suffix, ok := e.Match(path); ok {
			return Decision{Target: Static, Route: e, Suffix: suffix}
		}
	}
	return Decision{Target: Dynamic}
}

// Denied reports whether path is on the dynamic-only deny-list.
func (t *Table) Denied(path string) bool {
	for _, e := range t.dynamicOnly {
		if _, ok := e.Match(path); ok {
			return true
		}
	}
	return false
}

// Label returns a bounded-cardinality label for path: the canonical static
// prefix it matches, LabelDynamicOnly, or LabelDynamic.
func (t *Table) Label(path string) string {
	if d := t.Classify(path); d.Target == Static {
		return d.Route.Prefix
	}
	if t.Denied(path) {
		return LabelDynamicOnly
	}
	return LabelDynamic
}

// Static returns a copy of the static entries in configured order.
func (t *Table) Static() []Entry {
	return append([]Entry(nil), t.static...)
}

// DynamicOnly returns a copy of the deny-list entries.
func (t *Table) DynamicOnly() []Entry {
	return append([]Entry(nil), t.dynamicOnly...)
}

// Fold lower-cases ASCII letters and leaves every other byte untouched.
func Fold(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; 'A' <= c && c <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if 'A' <= b[j] && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}

// EqualFold compares a and b under Fold.
func EqualFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return Fold(a) == Fold(b)
}
