package dialog

import (
	"path/filepath"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/log"

	"github.com/gobwas/glob"
)

// AllExtensions is the extension that matches every file.
const AllExtensions = "*"

// Filter is a named extension set compiled to a case-insensitive glob.
type Filter struct {
	Name       string
	Extensions []string
	matcher    glob.Glob
}

// NewFilter compiles a filter. Extensions are given without the dot.
func NewFilter(name string, extensions ...string) Filter {
	f := Filter{Name: name}
	for _, ext := range extensions {
		f.Extensions = append(f.Extensions, strings.ToLower(strings.TrimPrefix(ext, ".")))
	}
	m, err := glob.Compile(f.Pattern())
	if err != nil {
		log.LogWithFields(log.F("filter", name), log.F("pattern", f.Pattern()), log.F("error", err)).
			Warn("Filter pattern does not compile, matching by suffix")
		return f
	}
	f.matcher = m
	return f
}

// FiltersFromConfig converts configured filters.
func FiltersFromConfig(filters []config.Filter) []Filter {
	out := make([]Filter, 0, len(filters))
	for _, f := range filters {
		out = append(out, NewFilter(f.Name, f.Extensions...))
	}
	return out
}

// AllFiles reports whether the filter accepts every file.
func (f Filter) AllFiles() bool {
	for _, ext := range f.Extensions {
		if ext == AllExtensions {
			return true
		}
	}
	return false
}

// Pattern returns the glob the filter matches base names against.
func (f Filter) Pattern() string {
	switch {
	case f.AllFiles():
		return "*"
	case len(f.Extensions) == 1:
		return "*." + f.Extensions[0]
	default:
		return "*.{" + strings.Join(f.Extensions, ",") + "}"
	}
}

// Match reports whether the file name (or path) passes the filter.
func (f Filter) Match(name string) bool {
	if f.AllFiles() {
		return true
	}
	base := strings.ToLower(filepath.Base(name))
	if f.matcher != nil {
		return f.matcher.Match(base)
	}
	for _, ext := range f.Extensions {
		if strings.HasSuffix(base, "."+ext) {
			return true
		}
	}
	return false
}

// Suffixes returns the extensions with a leading dot, or nil for an
// all-files filter.
func (f Filter) Suffixes() []string {
	if f.AllFiles() {
		return nil
	}
	out := make([]string, len(f.Extensions))
	for i, ext := range f.Extensions {
		out[i] = "." + ext
	}
	return out
}

// Label renders the filter the way pickers show it, e.g. "Markdown (*.md, *.txt)".
func (f Filter) Label() string {
	if f.AllFiles() {
		return f.Name + " (*)"
	}
	parts := make([]string, len(f.Extensions))
	for i, ext := range f.Extensions {
		parts[i] = "*." + ext
	}
	return f.Name + " (" + strings.Join(parts, ", ") + ")"
}

// MatchAny reports whether any filter accepts name. No filters accept all.
func MatchAny(filters []Filter, name string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if f.Match(name) {
			return true
		}
	}
	return false
}

// WithDefaultExtension appends the filter's first extension when name does
// not already satisfy the filter.
func WithDefaultExtension(f Filter, name string) string {
	if f.AllFiles() || len(f.Extensions) == 0 || f.Match(name) {
		return name
	}
	return name + "." + f.Extensions[0]
}
