// Package pathtarget implements the path value type used by permission
// grants and resource keys. A target is either an exact path or a glob
// pattern; the classification happens once at construction and never
// changes. All comparisons in the service use the normalized form, so
// normalization must be idempotent: normalizing an already-normalized
// path is a no-op.
package pathtarget

import (
	"errors"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrInvalidPath reports a blank path where an exact path is required.
var ErrInvalidPath = errors.New("path must not be blank")

// TargetPath is an immutable exact path or glob pattern.
type TargetPath struct {
	path      string
	isPattern bool
}

// Normalize canonicalizes a raw path: separators become '/', repeated
// separators collapse, surrounding whitespace and a leading "./" are
// dropped. Normalize(Normalize(x)) == Normalize(x) for all x.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "\\", "/")
	for strings.Contains(s, "//") {
		s = strings.ReplaceAll(s, "//", "/")
	}
	s = strings.TrimPrefix(s, "./")
	s = strings.TrimPrefix(s, "/")
	s = strings.TrimSuffix(s, "/")
	return s
}

// IsPatternString reports whether a raw string contains glob syntax.
func IsPatternString(raw string) bool {
	return strings.ContainsAny(raw, "*?{}")
}

// New constructs a TargetPath from a raw string. Blank input is legal
// and yields the unscoped target, which matches every path; permission
// targets use this to mean "no path restriction".
func New(raw string) TargetPath {
	norm := Normalize(raw)
	return TargetPath{path: norm, isPattern: IsPatternString(norm)}
}

// NewExact constructs a TargetPath that must name a concrete path.
// Blank input is rejected with ErrInvalidPath.
func NewExact(raw string) (TargetPath, error) {
	norm := Normalize(raw)
	if norm == "" {
		return TargetPath{}, ErrInvalidPath
	}
	return TargetPath{path: norm, isPattern: IsPatternString(norm)}, nil
}

// Path returns the normalized string form.
func (t TargetPath) Path() string { return t.path }

// IsPattern reports whether the target is a glob pattern.
func (t TargetPath) IsPattern() bool { return t.isPattern }

// IsUnscoped reports whether the target was built from a blank string.
func (t TargetPath) IsUnscoped() bool { return t.path == "" }

// Matches reports whether the candidate path falls under this target.
// Exact targets compare normalized strings; pattern targets glob-match
// the normalized candidate. Malformed patterns never match. The
// unscoped target matches everything.
func (t TargetPath) Matches(candidate string) bool {
	cand := Normalize(candidate)
	if t.path == "" {
		return true
	}
	if !t.isPattern {
		return t.path == cand
	}
	ok, err := doublestar.Match(t.path, cand)
	if err != nil {
		return false
	}
	return ok
}

func (t TargetPath) String() string { return t.path }
