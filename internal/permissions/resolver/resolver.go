// Package resolver computes effective permissions for paths from a
// user's own grants and the flattened grants of the user's groups. It
// is pure: no store access, no domain errors. Callers validate that
// the repository and identity exist before building a GrantSet.
package resolver

import (
	"sort"

	"github.com/DocumentationTool/Backend-sub000/internal/permissions/domain"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/pathtarget"
)

// GrantSet is the bucketed form of one identity's grants, built once
// and reused across any number of path resolutions.
//
// Resolution order, first match wins:
//
//	user exact -> group exact -> user pattern -> group pattern -> DENY
//
// Within a pattern bucket the longest pattern string wins. String
// length, not any notion of specificity, is the tie-break, even though
// a pattern can be padded with harmless characters to outrank another.
// Existing grant sets depend on it.
type GrantSet struct {
	userExact  map[string]domain.PermissionLevel
	groupExact map[string]domain.PermissionLevel

	userPatterns  []patternGrant
	groupPatterns []patternGrant
}

type patternGrant struct {
	target pathtarget.TargetPath
	level  domain.PermissionLevel
}

// Build partitions the grant slices into exact and pattern buckets per
// subject kind and orders each pattern bucket by descending pattern
// length. Unscoped targets (blank path) go into the pattern buckets:
// they match every path and, with length zero, rank last.
func Build(userGrants []domain.UserGrant, groupGrants []domain.GroupGrant) *GrantSet {
	set := &GrantSet{
		userExact:  make(map[string]domain.PermissionLevel, len(userGrants)),
		groupExact: make(map[string]domain.PermissionLevel, len(groupGrants)),
	}
	for _, g := range userGrants {
		if g.Target.IsPattern() || g.Target.IsUnscoped() {
			set.userPatterns = append(set.userPatterns, patternGrant{target: g.Target, level: g.Level})
		} else {
			set.userExact[g.Target.Path()] = g.Level
		}
	}
	for _, g := range groupGrants {
		if g.Target.IsPattern() || g.Target.IsUnscoped() {
			set.groupPatterns = append(set.groupPatterns, patternGrant{target: g.Target, level: g.Level})
		} else {
			set.groupExact[g.Target.Path()] = g.Level
		}
	}
	sortByLength(set.userPatterns)
	sortByLength(set.groupPatterns)
	return set
}

// sortByLength orders patterns longest-first. The sort is stable so
// equal-length patterns keep their relative insertion order, but the
// contract only promises a deterministic winner for distinct lengths.
func sortByLength(patterns []patternGrant) {
	sort.SliceStable(patterns, func(i, j int) bool {
		return len(patterns[i].target.Path()) > len(patterns[j].target.Path())
	})
}

// Resolve returns the effective permission for one path. A nil set
// means no identity was supplied at all: the caller gets full Edit
// rights, the default for anonymous reads. With an identity present,
// no matching grant means Deny.
func (s *GrantSet) Resolve(path string) domain.PermissionLevel {
	if s == nil {
		return domain.Edit
	}
	norm := pathtarget.Normalize(path)

	if level, ok := s.userExact[norm]; ok {
		return level
	}
	if level, ok := s.groupExact[norm]; ok {
		return level
	}
	for _, p := range s.userPatterns {
		if p.target.Matches(norm) {
			return p.level
		}
	}
	for _, p := range s.groupPatterns {
		if p.target.Matches(norm) {
			return p.level
		}
	}
	return domain.Deny
}

// ResolveAll resolves many paths against the set built once; no
// per-path recomputation of the buckets. The result maps normalized
// path to level.
func (s *GrantSet) ResolveAll(paths []string) map[string]domain.PermissionLevel {
	out := make(map[string]domain.PermissionLevel, len(paths))
	for _, p := range paths {
		out[pathtarget.Normalize(p)] = s.Resolve(p)
	}
	return out
}
