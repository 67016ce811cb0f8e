package ingestion

import (
	"fmt"

	"github.com/gobwas/glob"
)

// KeyFilter limits ingestion to keys matching any of a set of glob
// patterns. "/" is the separator, so "uploads/*" matches direct children
// only and "uploads/**" the whole subtree. No patterns matches every key.
type KeyFilter struct {
	globs []glob.Glob
}

func NewKeyFilter(patterns []string) (*KeyFilter, error) {
	f := &KeyFilter{globs: make([]glob.Glob, 0, len(patterns))}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid key pattern %q: %w", pattern, err)
		}
		f.globs = append(f.globs, g)
	}
	return f, nil
}

// Match reports whether key is in scope. A nil filter matches everything.
func (f *KeyFilter) Match(key string) bool {
	if f == nil || len(f.globs) == 0 {
		return true
	}
	for _, g := range f.globs {
		if g.Match(key) {
			return true
		}
	}
	return false
}
