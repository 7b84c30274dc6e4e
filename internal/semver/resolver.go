// Package semver resolves latest/next semantic versions from a project's
// existing version names.
//
// Ordering is deliberately relaxed relative to the public semver spec:
// tuples compare by (major, minor, patch), with the build number as a
// tiebreaker inside an equal triple. Pre-release labels and metadata do not
// participate in ordering at all; they are carried along with whichever
// tuple wins.
package semver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackalski/jira-version-manager/internal/core"
	"github.com/jackalski/jira-version-manager/internal/format"
)

// Bump identifies which component the next version increments.
type Bump string

const (
	BumpMajor Bump = "major"
	BumpMinor Bump = "minor"
	BumpPatch Bump = "patch"
)

// Compare orders two tuples under the relaxed rules. Returns -1, 0 or 1.
func Compare(a, b core.SemanticTuple) int {
	switch {
	case a.Major != b.Major:
		return cmpUint(a.Major, b.Major)
	case a.Minor != b.Minor:
		return cmpUint(a.Minor, b.Minor)
	case a.Patch != b.Patch:
		return cmpUint(a.Patch, b.Patch)
	}
	// Equal triple: an entry with a build number beats one without, and a
	// higher build number beats a lower one.
	switch {
	case a.Build == nil && b.Build == nil:
		return 0
	case a.Build == nil:
		return -1
	case b.Build == nil:
		return 1
	default:
		return cmpUint(*a.Build, *b.Build)
	}
}

func cmpUint(a, b uint64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// Latest reduces a project's version names to the maximum semantic tuple.
// scope is an optional name prefix (e.g. "backend-"): when non-empty, only
// names carrying it are considered, with the prefix stripped before parsing.
// Names that do not fit the semantic grammar are discarded. The second
// return is false when no name parsed.
func Latest(names []string, scope string) (core.SemanticTuple, bool) {
	var best core.SemanticTuple
	found := false
	for _, name := range names {
		if scope != "" {
			if !strings.HasPrefix(name, scope) {
				continue
			}
			name = strings.TrimPrefix(name, scope)
		}
		t := format.ParseSemantic(name)
		if t == nil {
			continue
		}
		if !found || Compare(*t, best) > 0 {
			best = *t
			found = true
		}
	}
	return best, found
}

// Next computes the tuple after latest under the given bump rule.
// Pre-release, build and metadata reset to absent; callers re-supply them
// explicitly when needed.
func Next(latest core.SemanticTuple, bump Bump) (core.SemanticTuple, error) {
	switch bump {
	case BumpMajor:
		return core.SemanticTuple{Major: latest.Major + 1}, nil
	case BumpMinor:
		return core.SemanticTuple{Major: latest.Major, Minor: latest.Minor + 1}, nil
	case BumpPatch:
		return core.SemanticTuple{Major: latest.Major, Minor: latest.Minor, Patch: latest.Patch + 1}, nil
	default:
		return core.SemanticTuple{}, fmt.Errorf("unknown bump %q", bump)
	}
}

// NextPreRelease computes the next pre-release label on a channel
// ("alpha", "beta", "rc"). When the latest label is already on the channel
// its trailing number increments; otherwise the channel starts at 1.
func NextPreRelease(latest core.SemanticTuple, channel string) string {
	label := latest.PreRelease
	if strings.HasPrefix(label, channel) {
		rest := strings.TrimPrefix(label, channel)
		rest = strings.TrimPrefix(rest, ".")
		if n, err := strconv.ParseUint(rest, 10, 64); err == nil {
			return fmt.Sprintf("%s.%d", channel, n+1)
		}
	}
	return channel + ".1"
}
