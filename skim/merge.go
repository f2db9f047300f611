package skim

import (
	"fmt"
	"sort"

	"delskim/table"
)

// Merge concatenates same-keyed columns from all per-file results, in input
// order, into one dataset. Failure sentinels (nil results) are dropped
// first; a batch of only sentinels merges to an empty, zero-key table.
//
// The column key set must be uniform across surviving results: a key present
// in some files but absent in others is a structural defect and fails the
// merge, naming the key and the offending file.
func Merge(results []*FileResult) (table.Table, error) {
	live := make([]*FileResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			live = append(live, r)
		}
	}
	if len(live) == 0 {
		return table.Table{}, nil
	}

	keySet := make(map[string]struct{})
	for _, r := range live {
		for key := range r.Table {
			keySet[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	merged := make(table.Table, len(keys))
	for _, key := range keys {
		var col table.Column
		for _, r := range live {
			part, ok := r.Table[key]
			if !ok {
				return nil, fmt.Errorf("column %q missing from %s", key, r.File)
			}
			if col == nil {
				col = part
				continue
			}
			joined, err := col.Concat(part)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", key, err)
			}
			col = joined
		}
		merged[key] = col
	}
	return merged, nil
}

// SplitDataset separates the merged dataset into the event-length table and
// the per-file bookkeeping table so each can be persisted as one record.
func SplitDataset(merged table.Table) (events, files table.Table) {
	files = make(table.Table, len(FileColumns))
	events = make(table.Table, len(merged))
	fileKeys := make(map[string]bool, len(FileColumns))
	for _, name := range FileColumns {
		fileKeys[name] = true
	}
	for name, col := range merged {
		if fileKeys[name] {
			files[name] = col
		} else {
			events[name] = col
		}
	}
	return events, files
}

// SkimTotal sums the per-file baseline survivor counts of a merged dataset.
func SkimTotal(merged table.Table) int64 {
	counts, ok := merged["skimEvents"].(table.Int64s)
	if !ok {
		return 0
	}
	var sum int64
	for _, c := range counts {
		sum += c
	}
	return sum
}

// RegionSummary counts merged events per signal region.
type RegionSummary struct {
	Events int64
	SR4J   int64
	SR5J   int64
	SR     int64
}

// SummarizeRegions tallies the signal-region flags of a merged dataset.
func SummarizeRegions(merged table.Table) RegionSummary {
	var s RegionSummary
	if flags, ok := merged["passSR"].(table.Bools); ok {
		s.Events = int64(len(flags))
		for _, pass := range flags {
			if pass {
				s.SR++
			}
		}
	}
	if flags, ok := merged["passSR4J"].(table.Bools); ok {
		for _, pass := range flags {
			if pass {
				s.SR4J++
			}
		}
	}
	if flags, ok := merged["passSR5J"].(table.Bools); ok {
		for _, pass := range flags {
			if pass {
				s.SR5J++
			}
		}
	}
	return s
}
