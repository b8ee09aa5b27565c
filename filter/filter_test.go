package filter

import (
	"testing"
)

func TestFilter_Allows_IncludeMode(t *testing.T) {
	opts := Options{
		IncludePath: []string{`^2024/`},
	}
	f, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if !f.Allows("2024/march/a.msg") {
		t.Error("Expected path to be allowed (prefix matches)")
	}

	if f.Allows("2023/a.msg") {
		t.Error("Expected path to be filtered out (prefix doesn't match)")
	}
}

func TestFilter_Allows_ExcludeMode(t *testing.T) {
	opts := Options{
		ExcludePath: []string{`(?i)/archive/`},
	}
	f, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if !f.Allows("inbox/a.msg") {
		t.Error("Expected path to be allowed (not archived)")
	}

	if f.Allows("old/Archive/b.msg") {
		t.Error("Expected path to be filtered out (archived)")
	}
}

func TestFilter_MutuallyExclusive(t *testing.T) {
	opts := Options{
		IncludePath: []string{"inbox"},
		ExcludePath: []string{"archive"},
	}
	_, err := New(opts)
	if err == nil {
		t.Error("Expected error when both include and exclude are specified")
	}
}

func TestFilter_InvalidPattern(t *testing.T) {
	_, err := New(Options{IncludePath: []string{"("}})
	if err == nil {
		t.Error("Expected error for invalid regex")
	}
}

func TestFilter_NoFilters(t *testing.T) {
	f, err := New(Options{IncludePath: []string{"  "}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if !f.Allows("any/path.msg") {
		t.Error("Expected path to be allowed when no filters are active")
	}
}

func TestFilter_NormalizesSeparators(t *testing.T) {
	f, err := New(Options{IncludePath: []string{`^sub/dir/`}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !f.Allows("sub/dir/a.msg") {
		t.Error("Expected slash separated path to match")
	}
}

func TestFilter_GetStats(t *testing.T) {
	f, err := New(Options{ExcludePath: []string{"tmp", "draft"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for _, p := range []string{"tmp/a.msg", "tmp/b.msg", "draft/c.msg", "inbox/d.msg"} {
		f.Allows(p)
	}

	s := f.GetStats()
	if len(s.ExcludePatterns) != 2 {
		t.Fatalf("ExcludePatterns = %v, want 2 entries", s.ExcludePatterns)
	}
	if s.ExcludeHits["tmp"] != 2 {
		t.Errorf("ExcludeHits[tmp] = %d, want 2", s.ExcludeHits["tmp"])
	}
	if s.ExcludeHits["draft"] != 1 {
		t.Errorf("ExcludeHits[draft] = %d, want 1", s.ExcludeHits["draft"])
	}
}
