package filter

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Options captures the filtering configuration.
type Options struct {
	IncludePath []string
	ExcludePath []string
}

// Filter holds compiled regex patterns for narrowing file discovery.
type Filter struct {
	includeMode bool
	excludeMode bool
	include     []*regexp.Regexp
	exclude     []*regexp.Regexp

	mu          sync.Mutex
	includeHits map[string]int
	excludeHits map[string]int
}

// Stats reports how often each pattern matched.
type Stats struct {
	IncludePatterns []string
	ExcludePatterns []string
	IncludeHits     map[string]int
	ExcludeHits     map[string]int
}

// New creates a new Filter from the provided options.
func New(opts Options) (*Filter, error) {
	include, err := compilePatterns(opts.IncludePath)
	if err != nil {
		return nil, fmt.Errorf("compile include-path pattern: %w", err)
	}
	exclude, err := compilePatterns(opts.ExcludePath)
	if err != nil {
		return nil, fmt.Errorf("compile exclude-path pattern: %w", err)
	}

	if len(include) > 0 && len(exclude) > 0 {
		return nil, fmt.Errorf("include and exclude filters are mutually exclusive")
	}

	return &Filter{
		includeMode: len(include) > 0,
		excludeMode: len(exclude) > 0,
		include:     include,
		exclude:     exclude,
		includeHits: make(map[string]int),
		excludeHits: make(map[string]int),
	}, nil
}

// Allows returns true if the path relative to the search directory passes
// the filter. Separators are normalized to "/" before matching.
func (f *Filter) Allows(relPath string) bool {
	text := filepath.ToSlash(relPath)

	if f.includeMode {
		return f.matchAny(f.include, f.includeHits, text)
	}

	if f.excludeMode && f.matchAny(f.exclude, f.excludeHits, text) {
		return false
	}

	return true
}

// GetStats returns a copy of the pattern hit counters.
func (f *Filter) GetStats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := Stats{
		IncludeHits: make(map[string]int, len(f.includeHits)),
		ExcludeHits: make(map[string]int, len(f.excludeHits)),
	}
	for _, re := range f.include {
		s.IncludePatterns = append(s.IncludePatterns, re.String())
	}
	for _, re := range f.exclude {
		s.ExcludePatterns = append(s.ExcludePatterns, re.String())
	}
	for k, v := range f.includeHits {
		s.IncludeHits[k] = v
	}
	for k, v := range f.excludeHits {
		s.ExcludeHits[k] = v
	}
	return s
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func (f *Filter) matchAny(patterns []*regexp.Regexp, hits map[string]int, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			f.mu.Lock()
			hits[re.String()]++
			f.mu.Unlock()
			return true
		}
	}
	return false
}
