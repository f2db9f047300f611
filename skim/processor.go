package skim

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"delskim/delphes"
	"delskim/metrics"
	"delskim/physics"
	"delskim/table"
	"delskim/xsec"
)

// jetColumns are the co-indexed fat-jet kinematic columns: filtering an
// object out of one must filter it out of all of them.
var jetColumns = []string{"fatJetPt", "fatJetEta", "fatJetPhi", "fatJetM"}

// FileColumns are the singleton bookkeeping columns attached to each
// per-file result. They carry one entry per file, not per event, and are
// split from the event columns at the persistence boundary.
var FileColumns = []string{"inputFile", "skimEvents", "totalEvents", "xsec"}

// FileResult is the outcome of processing one input file. A nil *FileResult
// is the failure sentinel for a file that could not be read.
type FileResult struct {
	File     string
	Table    table.Table
	Total    int64
	Baseline int64
}

// Processor turns one input file into a skimmed per-file result.
type Processor struct {
	Reader    delphes.Reader
	Branches  map[string]string // defaults to delphes.Branches
	Xsec      *xsec.Lazy
	MaxEvents int
	Metrics   *metrics.Metrics // optional
	Log       *slog.Logger     // optional
}

func (p *Processor) logger() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}

// ProcessFile reads, selects and skims one input file. Read failures never
// propagate: they are logged and reported as a nil result. An unknown sample
// in the cross-section lookup is a configuration error and is returned as a
// fatal error.
func (p *Processor) ProcessFile(ctx context.Context, path string) (*FileResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := p.logger().With("file", filepath.Base(path))
	start := time.Now()
	log.Info("now processing")

	branches := p.Branches
	if branches == nil {
		branches = delphes.Branches
	}

	data, err := p.Reader.ReadFile(path, branches, p.MaxEvents)
	if err != nil {
		log.Warn("failed to read input file", "error", err)
		p.Metrics.RecordFile(false, 0, 0, time.Since(start))
		return nil, nil
	}
	if len(data) == 0 {
		log.Warn("input file produced no columns")
		p.Metrics.RecordFile(false, 0, 0, time.Since(start))
		return nil, nil
	}
	for _, name := range jetColumns {
		if _, ok := data[name].(table.Ragged); !ok {
			log.Warn("input file missing fat-jet branch", "branch", name)
			p.Metrics.RecordFile(false, 0, 0, time.Since(start))
			return nil, nil
		}
	}

	out, total, baseline, err := processEvents(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Info("baseline selected events", "baseline", baseline, "total", total)

	// Bookkeeping: source file, cross section and unfiltered counters,
	// one entry per file.
	sample := xsec.SampleFromFilename(path)
	xs, err := p.Xsec.Lookup(sample)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	bookkeeping := table.Table{
		"inputFile":   table.Strings{filepath.Base(path)},
		"xsec":        table.Float64s{xs},
		"totalEvents": table.Int64s{total},
		"skimEvents":  table.Int64s{baseline},
	}
	if err := out.Merge(bookkeeping); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	p.Metrics.RecordFile(true, total, baseline, time.Since(start))
	return &FileResult{File: path, Table: out, Total: total, Baseline: baseline}, nil
}

// processEvents applies object selection, the baseline event cut and the
// feature/region calculation to the reader columns of one file.
func processEvents(data table.Table) (table.Table, int64, int64, error) {
	pt := data["fatJetPt"].(table.Ragged)
	eta := data["fatJetEta"].(table.Ragged)
	if len(eta) != len(pt) {
		return nil, 0, 0, fmt.Errorf("%w: fatJetPt has %d events, fatJetEta has %d",
			table.ErrLengthMismatch, len(pt), len(eta))
	}

	// Object selection: per-event index lists of jets passing the cuts,
	// applied to every co-indexed jet column.
	total := int64(len(pt))
	indices := make([][]int, len(pt))
	for i := range indices {
		indices[i] = physics.SelectFatJets(pt[i], eta[i])
	}

	jets := make(table.Table, len(jetColumns))
	for _, name := range jetColumns {
		selected, err := data[name].(table.Ragged).Take(indices)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("column %q: %w", name, err)
		}
		jets[name] = selected
	}

	// Baseline event selection: at least one surviving jet.
	selPt := jets["fatJetPt"].(table.Ragged)
	keep := make([]bool, len(selPt))
	var baseline int64
	for i := range keep {
		keep[i] = physics.IsBaselineEvent(selPt[i])
		if keep[i] {
			baseline++
		}
	}

	jets, err := jets.MaskEvents(keep)
	if err != nil {
		return nil, 0, 0, err
	}

	out := table.Table{}
	if err := out.Merge(jets); err != nil {
		return nil, 0, 0, err
	}
	if err := out.Merge(deriveFeatures(jets)); err != nil {
		return nil, 0, 0, err
	}

	// Re-attach the reader columns untouched by the jet-selection chain,
	// under the same baseline mask.
	rest := make(table.Table)
	for name, col := range data {
		if _, ok := out[name]; !ok {
			rest[name] = col
		}
	}
	rest, err = rest.MaskEvents(keep)
	if err != nil {
		return nil, 0, 0, err
	}
	if err := out.Merge(rest); err != nil {
		return nil, 0, 0, err
	}

	return out, total, baseline, nil
}

// deriveFeatures computes the per-event scalar quantities and signal-region
// flags over the already-filtered jets. With zero surviving events all
// derived columns are valid empty columns of their usual types.
func deriveFeatures(jets table.Table) table.Table {
	selPt := jets["fatJetPt"].(table.Ragged)
	selEta := jets["fatJetEta"].(table.Ragged)
	selM := jets["fatJetM"].(table.Ragged)

	n := len(selPt)
	numJets := make(table.Int64s, n)
	sumMass := make(table.Float64s, n)
	dEta12 := make(table.Float64s, n)
	passSR4J := make(table.Bools, n)
	passSR5J := make(table.Bools, n)
	passSR := make(table.Bools, n)

	for i := 0; i < n; i++ {
		numJets[i] = physics.NumJets(selPt[i])
		sumMass[i] = physics.SumJetMass(selM[i])
		dEta12[i] = physics.DEta12(selEta[i])
		passSR4J[i] = physics.PassSR4J(numJets[i], sumMass[i], dEta12[i])
		passSR5J[i] = physics.PassSR5J(numJets[i], sumMass[i], dEta12[i])
		passSR[i] = passSR4J[i] || passSR5J[i]
	}

	return table.Table{
		"numFatJet":    numJets,
		"sumFatJetM":   sumMass,
		"fatJetDEta12": dEta12,
		"passSR4J":     passSR4J,
		"passSR5J":     passSR5J,
		"passSR":       passSR,
	}
}
