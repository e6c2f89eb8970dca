package store

import (
	"github.com/jimezsa/admitscrape/internal/models"
)

// DiffStats captures stats for A-B unseen filtering.
type DiffStats struct {
	TotalNew    int
	TotalSeen   int
	InvalidNew  int
	InvalidSeen int
	Unseen      int
}

// InvalidSkipped returns the total invalid records skipped during comparison.
func (s DiffStats) InvalidSkipped() int {
	return s.InvalidNew + s.InvalidSeen
}

// MergeStats captures stats for history updates.
type MergeStats struct {
	TotalSeen    int
	TotalInput   int
	InvalidSeen  int
	InvalidInput int
	Added        int
	TotalOut     int
}

// InvalidSkipped returns the total invalid records skipped during merge.
func (s MergeStats) InvalidSkipped() int {
	return s.InvalidSeen + s.InvalidInput
}

// Diff returns the records in incoming whose source URL is absent from seen.
func Diff(incoming []models.AdmissionRecord, seen []models.AdmissionRecord) ([]models.AdmissionRecord, DiffStats) {
	stats := DiffStats{
		TotalNew:  len(incoming),
		TotalSeen: len(seen),
	}

	seenKeys := make(map[string]struct{}, len(seen))
	for _, rec := range seen {
		key, ok := Key(rec)
		if !ok {
			stats.InvalidSeen++
			continue
		}
		seenKeys[key] = struct{}{}
	}

	newKeys := make(map[string]struct{}, len(incoming))
	unseen := make([]models.AdmissionRecord, 0, len(incoming))
	for _, rec := range incoming {
		key, ok := Key(rec)
		if !ok {
			stats.InvalidNew++
			continue
		}
		if _, exists := newKeys[key]; exists {
			continue
		}
		newKeys[key] = struct{}{}
		if _, exists := seenKeys[key]; exists {
			continue
		}
		unseen = append(unseen, rec)
	}

	stats.Unseen = len(unseen)
	return unseen, stats
}

// Merge appends unique incoming records to existing.
// Existing entries win collisions.
func Merge(existing []models.AdmissionRecord, incoming []models.AdmissionRecord) ([]models.AdmissionRecord, MergeStats) {
	stats := MergeStats{
		TotalSeen:  len(existing),
		TotalInput: len(incoming),
	}

	keys := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]models.AdmissionRecord, 0, len(existing)+len(incoming))

	for _, rec := range existing {
		key, ok := Key(rec)
		if !ok {
			stats.InvalidSeen++
			out = append(out, rec)
			continue
		}
		if _, exists := keys[key]; exists {
			continue
		}
		keys[key] = struct{}{}
		out = append(out, rec)
	}

	for _, rec := range incoming {
		key, ok := Key(rec)
		if !ok {
			stats.InvalidInput++
			continue
		}
		if _, exists := keys[key]; exists {
			continue
		}
		keys[key] = struct{}{}
		out = append(out, rec)
		stats.Added++
	}

	stats.TotalOut = len(out)
	return out, stats
}
