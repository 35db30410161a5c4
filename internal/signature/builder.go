// Package signature derives a stable identity for an error occurrence from
// its raw attributes, so that repeated observations of the same logical
// error collapse onto one issue regardless of the dynamic values (ids,
// timestamps, addresses) embedded in any particular log line.
package signature

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/user/log-audit/internal/domain"
)

// Version identifies the normalization rule set. Bumping it after a rule
// change reclassifies historical signatures; the version is persisted on
// every issue so a reclassification is at least distinguishable from a
// genuinely new error.
const Version = 1

const (
	pathPlaceholder    = ":id"
	messagePlaceholder = "<*>"
	unknownPath        = "/unknown"
	unknownPattern     = "unknown"

	maxPatternLen = 500
	// MaxSampleLen bounds the representative raw message kept per group.
	MaxSampleLen = 1000
)

var (
	uuidSegmentRe  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	digitSegmentRe = regexp.MustCompile(`^\d+$`)
)

// messageRules is the ordered substitution pipeline for message patterns.
// Order matters: each rule must not be able to re-match the placeholder
// text produced by an earlier one.
var messageRules = []struct {
	name string
	re   *regexp.Regexp
}{
	{"uuid", regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)},
	{"long_number", regexp.MustCompile(`\d{5,}`)},
	{"timestamp", regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)},
	{"ipv4", regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)},
}

// Builder turns one ErrorOccurrence into its normalized form and signature.
// Builders are stateless and safe for concurrent use.
type Builder struct{}

// NewBuilder creates a signature Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// NormalizedError is the output of the builder for one occurrence.
type NormalizedError struct {
	Signature string
	Path      string
	Pattern   string
}

// Build normalizes the occurrence's path and message and computes its
// signature. The signature is a pure function of (path, method, status,
// pattern): identical tuples yield identical signatures in every process,
// forever.
func (b *Builder) Build(occ domain.ErrorOccurrence) NormalizedError {
	path := b.NormalizePath(occ.Path)
	pattern := b.NormalizeMessage(occ.Message)
	return NormalizedError{
		Signature: Compute(path, occ.Method, occ.StatusCode, pattern),
		Path:      path,
		Pattern:   pattern,
	}
}

// NormalizePath strips the query string and replaces UUID and all-digit
// path segments with a placeholder. A missing or unparseable path becomes
// the literal "/unknown".
func (b *Builder) NormalizePath(rawPath string) string {
	if i := strings.IndexByte(rawPath, '?'); i >= 0 {
		rawPath = rawPath[:i]
	}
	rawPath = strings.TrimSpace(rawPath)
	if rawPath == "" || !strings.HasPrefix(rawPath, "/") {
		return unknownPath
	}

	segments := strings.Split(rawPath, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if uuidSegmentRe.MatchString(seg) || digitSegmentRe.MatchString(seg) {
			segments[i] = pathPlaceholder
		}
	}
	return strings.Join(segments, "/")
}

// NormalizeMessage applies the substitution pipeline in rule order and
// truncates the result. An empty message normalizes to "unknown".
func (b *Builder) NormalizeMessage(message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return unknownPattern
	}
	for _, rule := range messageRules {
		message = rule.re.ReplaceAllString(message, messagePlaceholder)
	}
	if len(message) > maxPatternLen {
		message = message[:maxPatternLen]
	}
	return message
}

// Compute hashes the normalized tuple into a fixed-width signature string.
// FNV-1a is not cryptographic; 64 bits keeps collisions a tolerable rarity
// for this population, and an occasional collision merely merges two issues.
func Compute(path, method string, statusCode int, pattern string) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s\x1f%s\x1f%d\x1f%s", path, method, statusCode, pattern)
	return fmt.Sprintf("err_%016x", h.Sum64())
}

// TruncateSample bounds a raw message for storage as a group sample.
func TruncateSample(message string) string {
	if len(message) > MaxSampleLen {
		return message[:MaxSampleLen]
	}
	return message
}
