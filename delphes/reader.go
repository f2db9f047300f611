// Package delphes is the boundary to the external detector-simulation
// reader. The pipeline only depends on the Reader interface; IPCReader is
// the production implementation reading events already converted to Arrow
// IPC streams by the upstream Delphes exporter.
package delphes

import (
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"delskim/table"
)

// Branches is the fixed column remapping applied at read time: source branch
// name to skim column name. Only mapped branches are read.
var Branches = map[string]string{
	"Event.Number":    "eventNumber",
	"Event.ProcessID": "proc",
	"Tower.Eta":       "clusEta",
	"Tower.Phi":       "clusPhi",
	"Tower.E":         "clusE",
	"Tower.Eem":       "clusEM",
	"FatJet.PT":       "fatJetPt",
	"FatJet.Eta":      "fatJetEta",
	"FatJet.Phi":      "fatJetPhi",
	"FatJet.Mass":     "fatJetM",
	"Track.PT":        "trackPt",
	"Track.Eta":       "trackEta",
	"Track.Phi":       "trackPhi",
}

// Reader yields named column arrays from one detector-simulation file.
// branches selects and renames source columns; maxEvents caps the number of
// events read (<= 0 means no cap).
type Reader interface {
	ReadFile(path string, branches map[string]string, maxEvents int) (table.Table, error)
}

// IPCReader reads Arrow IPC stream files.
type IPCReader struct {
	mem memory.Allocator
}

// NewIPCReader creates an IPCReader with the default allocator.
func NewIPCReader() *IPCReader {
	return &IPCReader{mem: memory.DefaultAllocator}
}

// ReadFile reads the file's record batches, accumulating mapped columns
// until the event cap is reached. Source branches absent from the file are
// skipped; I/O and decode errors are returned for the caller to convert
// into a per-file failure.
func (r *IPCReader) ReadFile(path string, branches map[string]string, maxEvents int) (table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	reader, err := ipc.NewReader(f, ipc.WithAllocator(r.mem))
	if err != nil {
		return nil, fmt.Errorf("failed to create IPC reader for %s: %w", path, err)
	}
	defer reader.Release()

	var out table.Table
	read := 0
	for reader.Next() {
		rec := reader.Record()

		limit := 0
		if maxEvents > 0 {
			limit = maxEvents - read
			if limit <= 0 {
				break
			}
		}

		batch, err := table.FromRecord(rec, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to decode batch from %s: %w", path, err)
		}
		batch = renameBranches(batch, branches)

		n, err := batch.NumEvents()
		if err != nil {
			return nil, fmt.Errorf("inconsistent batch in %s: %w", path, err)
		}
		read += n

		if out == nil {
			out = batch
			continue
		}
		if err := concatInto(out, batch); err != nil {
			return nil, fmt.Errorf("failed to append batch from %s: %w", path, err)
		}
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if out == nil {
		out = table.Table{}
	}
	return out, nil
}

// renameBranches keeps only mapped columns, under their skim names.
func renameBranches(t table.Table, branches map[string]string) table.Table {
	out := make(table.Table, len(branches))
	for src, dst := range branches {
		if col, ok := t[src]; ok {
			out[dst] = col
		}
	}
	return out
}

// concatInto appends src columns onto dst in place. Batches of one file must
// agree on their column set.
func concatInto(dst, src table.Table) error {
	for name, col := range dst {
		more, ok := src[name]
		if !ok {
			return fmt.Errorf("column %q missing from later batch", name)
		}
		joined, err := col.Concat(more)
		if err != nil {
			return fmt.Errorf("column %q: %w", name, err)
		}
		dst[name] = joined
	}
	return nil
}
