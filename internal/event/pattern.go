package event

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadPattern is returned when a wildcard pattern is malformed. Patterns
// are rejected at registration time, never at dispatch time.
var ErrBadPattern = errors.New("malformed event pattern")

// validatePattern checks a dot-segmented wildcard pattern. "*" matches
// exactly one segment; "**" matches one or more segments and is legal only as
// the final segment.
func validatePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("%w: empty pattern", ErrBadPattern)
	}
	segs := strings.Split(pattern, ".")
	for i, seg := range segs {
		if seg == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrBadPattern, pattern)
		}
		if seg == "**" && i != len(segs)-1 {
			return fmt.Errorf("%w: %q may only end with \"**\"", ErrBadPattern, pattern)
		}
	}
	return nil
}

// matchPattern reports whether an event type matches a validated pattern.
// Comparison is segment by segment, linear in the number of segments; no
// pattern compilation happens per event.
func matchPattern(pattern string, typ Type) bool {
	psegs := strings.Split(pattern, ".")
	tsegs := strings.Split(string(typ), ".")

	for i, pseg := range psegs {
		if pseg == "**" {
			// Trailing "**" needs at least one remaining type segment.
			return len(tsegs) > i
		}
		if i >= len(tsegs) {
			return false
		}
		if pseg != "*" && pseg != tsegs[i] {
			return false
		}
	}
	return len(tsegs) == len(psegs)
}
