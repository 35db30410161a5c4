package usecase

import (
	"github.com/user/log-audit/internal/domain"
	"github.com/user/log-audit/internal/signature"
)

// Aggregator folds a stream of error occurrences into one ErrorGroup per
// signature within a single run. An Aggregator is not safe for concurrent
// use; the audit service gives each service goroutine its own instance and
// merges the partial maps afterwards, which avoids any lock contention on
// the shared signature map.
type Aggregator struct {
	builder *signature.Builder
	groups  map[string]*domain.ErrorGroup
}

// NewAggregator creates an empty Aggregator.
func NewAggregator(builder *signature.Builder) *Aggregator {
	return &Aggregator{
		builder: builder,
		groups:  make(map[string]*domain.ErrorGroup),
	}
}

// Add folds one occurrence into its group. Occurrences below status 400 are
// not errors and are dropped here, regardless of what the log source
// returned.
func (a *Aggregator) Add(occ domain.ErrorOccurrence) {
	if occ.StatusCode < 400 {
		return
	}

	norm := a.builder.Build(occ)
	group, ok := a.groups[norm.Signature]
	if !ok {
		a.groups[norm.Signature] = &domain.ErrorGroup{
			Signature:  norm.Signature,
			Path:       norm.Path,
			Method:     occ.Method,
			StatusCode: occ.StatusCode,
			Pattern:    norm.Pattern,
			Service:    occ.Service,
			Count:      1,
			FirstSeen:  occ.OccurredAt,
			LastSeen:   occ.OccurredAt,
			Sample:     signature.TruncateSample(occ.Message),
		}
		return
	}

	group.Count++
	if occ.OccurredAt.After(group.LastSeen) {
		group.LastSeen = occ.OccurredAt
	}
}

// Groups returns the signature -> group map built so far.
func (a *Aggregator) Groups() map[string]*domain.ErrorGroup {
	return a.groups
}

// Merge folds another aggregator's partial map into this one. Counts add,
// FirstSeen keeps the earliest timestamp, LastSeen the latest; the sample
// of the receiving group wins.
func (a *Aggregator) Merge(other *Aggregator) {
	for sig, group := range other.groups {
		existing, ok := a.groups[sig]
		if !ok {
			a.groups[sig] = group
			continue
		}
		existing.Count += group.Count
		if group.FirstSeen.Before(existing.FirstSeen) {
			existing.FirstSeen = group.FirstSeen
		}
		if group.LastSeen.After(existing.LastSeen) {
			existing.LastSeen = group.LastSeen
		}
	}
}
