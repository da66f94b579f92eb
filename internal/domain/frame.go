package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

// FramePattern compiles the filename grammar for a given prefix:
// "<prefix>_<RR>_<NNNNN>.tif" where RR is a two-digit run and NNNNN a
// five-digit frame number.
type FramePattern struct {
	prefix string
	re     *regexp.Regexp
}

// CompileFramePattern builds a FramePattern for the given configured
// filename prefix.
func CompileFramePattern(prefix string) *FramePattern {
	re := regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + `_([0-9]{2})_([0-9]{5})\.tif$`)
	return &FramePattern{prefix: prefix, re: re}
}

// Prefix returns the configured filename prefix.
func (p *FramePattern) Prefix() string {
	return p.prefix
}

// Parse extracts (run, frameNumber) from a base filename (no directory
// component). ok is false if the name does not match the grammar.
func (p *FramePattern) Parse(name string) (run uint16, frameNumber uint32, ok bool) {
	m := p.re.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	r, err := strconv.ParseUint(m[1], 10, 16)
	if err != nil {
		return 0, 0, false
	}
	n, err := strconv.ParseUint(m[2], 10, 32)
	if err != nil {
		return 0, 0, false
	}
	return uint16(r), uint32(n), true
}

// FrameName formats a (prefix, run, frameNumber) triple back into its
// canonical filename, the inverse of Parse.
func FrameName(prefix string, run uint16, frameNumber uint32) string {
	return fmt.Sprintf("%s_%02d_%05d.tif", prefix, run, frameNumber)
}

// isSafeToDeletePattern matches any frame filename, independent of the
// configured prefix, for use by the safe deleter's per-file predicate.
var isSafeToDeletePattern = regexp.MustCompile(`.*_[0-9]{2}_[0-9]{5}\.tif$`)

// MatchesFrameGrammar reports whether a base filename has the generic
// "<anything>_RR_NNNNN.tif" shape, regardless of configured prefix. The
// safe deleter uses this rather than a prefix-bound FramePattern so a
// prefix change mid-run never loosens the deletion safety check.
func MatchesFrameGrammar(name string) bool {
	return isSafeToDeletePattern.MatchString(name)
}
