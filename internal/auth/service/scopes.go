package service

import (
	"slices"
	"strings"
)

// ScopeWildcard grants every scope. It is never part of the catalog itself;
// tokens may carry it but it is not an id a caller can define.
const ScopeWildcard = "*"

// ScopeCatalog is the set of scope ids this deployment recognises. It is
// built once at startup from configuration and read-only afterwards.
type ScopeCatalog struct {
	ids []string
	set map[string]struct{}
}

// NewScopeCatalog builds a catalog from the given ids, dropping blanks,
// duplicates and the wildcard.
func NewScopeCatalog(ids ...string) *ScopeCatalog {
	c := &ScopeCatalog{set: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || id == ScopeWildcard {
			continue
		}
		if _, ok := c.set[id]; ok {
			continue
		}
		c.set[id] = struct{}{}
		c.ids = append(c.ids, id)
	}
	return c
}

// Has reports whether id is a known scope.
func (c *ScopeCatalog) Has(id string) bool {
	_, ok := c.set[id]
	return ok
}

// IDs returns the catalog's scope ids in definition order.
func (c *ScopeCatalog) IDs() []string {
	return slices.Clone(c.ids)
}

// Unknown returns every element of scopes that is neither a known scope nor
// the wildcard. An empty result means the request is well-formed.
func (c *ScopeCatalog) Unknown(scopes []string) []string {
	var out []string
	for _, s := range scopes {
		if s == ScopeWildcard || c.Has(s) {
			continue
		}
		out = append(out, s)
	}
	return out
}
