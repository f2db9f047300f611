package skim

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delskim/arrowio"
	"delskim/delphes"
	"delskim/table"
	"delskim/xsec"
)

// writeInput writes a Delphes-style Arrow input file with source branch
// names into dir and returns its path.
func writeInput(t *testing.T, dir, name string, data table.Table) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, arrowio.WriteTable(path, data, false))
	return path
}

func writeXsec(t *testing.T, dir, content string) *xsec.Lazy {
	t.Helper()
	path := filepath.Join(dir, "cross_sections.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return xsec.NewLazy(path)
}

// threeEventInput has selector survivors in events 1 and 3 and none in
// event 2: jets below 200 GeV or beyond |eta| 2.0 are dropped.
func threeEventInput() table.Table {
	return table.Table{
		"FatJet.PT":    table.Ragged{{450, 100}, {150}, {320}},
		"FatJet.Eta":   table.Ragged{{0.5, 0.2}, {0.1}, {-1.0}},
		"FatJet.Phi":   table.Ragged{{1.0, 2.0}, {3.0}, {-2.5}},
		"FatJet.Mass":  table.Ragged{{90, 10}, {20}, {75}},
		"Tower.E":      table.Ragged{{5, 6, 7}, {}, {8}},
		"Event.Number": table.Int64s{1, 2, 3},
	}
}

func newProcessor(t *testing.T, dir string) *Processor {
	t.Helper()
	return &Processor{
		Reader: delphes.NewIPCReader(),
		Xsec:   writeXsec(t, dir, "GG_RPV10 0.0252\nQCD 12640.0\n"),
	}
}

func TestProcessFileBaselineSelection(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "GG_RPV10-1.arrow", threeEventInput())
	proc := newProcessor(t, dir)

	res, err := proc.ProcessFile(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, int64(3), res.Total)
	assert.Equal(t, int64(2), res.Baseline)

	// event columns hold exactly the two baseline events
	pt := res.Table["fatJetPt"].(table.Ragged)
	require.Len(t, pt, 2)
	assert.Equal(t, []float64{450}, pt[0])
	assert.Equal(t, []float64{320}, pt[1])

	// object filtering kept co-indexed jet columns aligned
	assert.Equal(t, []float64{90}, []float64(res.Table["fatJetM"].(table.Ragged)[0]))
	assert.Equal(t, []float64{1.0}, []float64(res.Table["fatJetPhi"].(table.Ragged)[0]))

	// untouched reader columns got the same baseline mask
	assert.Equal(t, table.Int64s{1, 3}, res.Table["eventNumber"])
	clusE := res.Table["clusE"].(table.Ragged)
	require.Len(t, clusE, 2)
	assert.Equal(t, []float64{5, 6, 7}, clusE[0])

	// bookkeeping singletons
	assert.Equal(t, table.Int64s{3}, res.Table["totalEvents"])
	assert.Equal(t, table.Int64s{2}, res.Table["skimEvents"])
	assert.Equal(t, table.Strings{"GG_RPV10-1.arrow"}, res.Table["inputFile"])
	assert.Equal(t, table.Float64s{0.0252}, res.Table["xsec"])

	// derived features for single-jet events
	assert.Equal(t, table.Int64s{1, 1}, res.Table["numFatJet"])
	assert.Equal(t, table.Float64s{90, 75}, res.Table["sumFatJetM"])
	assert.Equal(t, table.Float64s{-1, -1}, res.Table["fatJetDEta12"])
	assert.Equal(t, table.Bools{false, false}, res.Table["passSR"])
}

func TestProcessFileZeroBaselineSurvivors(t *testing.T) {
	dir := t.TempDir()
	data := table.Table{
		"FatJet.PT":    table.Ragged{{50}, {}},
		"FatJet.Eta":   table.Ragged{{0.1}, {}},
		"FatJet.Phi":   table.Ragged{{0.2}, {}},
		"FatJet.Mass":  table.Ragged{{5}, {}},
		"Event.Number": table.Int64s{1, 2},
	}
	path := writeInput(t, dir, "QCD-7.arrow", data)
	proc := newProcessor(t, dir)

	res, err := proc.ProcessFile(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, int64(0), res.Baseline)
	assert.Equal(t, table.Int64s{0}, res.Table["skimEvents"])

	// derived columns are typed empty columns, not missing ones
	require.Contains(t, res.Table, "passSR")
	assert.Equal(t, 0, res.Table["passSR"].Len())
	assert.Equal(t, 0, res.Table["sumFatJetM"].Len())
	assert.Equal(t, 0, res.Table["eventNumber"].Len())
}

func TestProcessFileUnreadableInputIsSentinel(t *testing.T) {
	dir := t.TempDir()
	proc := newProcessor(t, dir)

	res, err := proc.ProcessFile(context.Background(), filepath.Join(dir, "missing.arrow"))
	require.NoError(t, err, "a read failure must not abort the batch")
	assert.Nil(t, res)
}

func TestProcessFileUnknownSampleIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "MYSTERY-1.arrow", threeEventInput())
	proc := newProcessor(t, dir)

	_, err := proc.ProcessFile(context.Background(), path)
	require.ErrorIs(t, err, xsec.ErrUnknownSample)
	assert.Contains(t, err.Error(), "MYSTERY")
}

func TestDispatcherEndToEnd(t *testing.T) {
	dir := t.TempDir()

	// file A: two surviving events
	fileA := writeInput(t, dir, "GG_RPV10-1.arrow", threeEventInput())
	// file B: all events filtered out
	fileB := writeInput(t, dir, "QCD-2.arrow", table.Table{
		"FatJet.PT":    table.Ragged{{10}},
		"FatJet.Eta":   table.Ragged{{3.5}},
		"FatJet.Phi":   table.Ragged{{0}},
		"FatJet.Mass":  table.Ragged{{1}},
		"Tower.E":      table.Ragged{{1, 2}},
		"Event.Number": table.Int64s{9},
	})
	// file C: unreadable
	fileC := filepath.Join(dir, "QCD-3.arrow")

	d := &Dispatcher{
		Workers:   2,
		Processor: newProcessor(t, dir),
	}

	results, err := d.Run(context.Background(), []string{fileA, fileB, fileC})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.NotNil(t, results[0])
	assert.NotNil(t, results[1])
	assert.Nil(t, results[2], "unreadable file must yield the failure sentinel")

	merged, err := Merge(results)
	require.NoError(t, err)

	// merged event columns hold only file A's two survivors
	n := merged["passSR"].Len()
	assert.Equal(t, 2, n)
	// bookkeeping concatenates per file
	assert.Equal(t, table.Int64s{2, 0}, merged["skimEvents"])
	assert.Equal(t, int64(2), SkimTotal(merged))
	assert.Equal(t, table.Float64s{0.0252, 12640.0}, merged["xsec"])
}

func TestDispatcherPropagatesFatalError(t *testing.T) {
	dir := t.TempDir()
	good := writeInput(t, dir, "GG_RPV10-1.arrow", threeEventInput())
	bad := writeInput(t, dir, "NOT_A_SAMPLE-1.arrow", threeEventInput())

	d := &Dispatcher{
		Workers:   1,
		Processor: newProcessor(t, dir),
	}

	_, err := d.Run(context.Background(), []string{good, bad})
	require.ErrorIs(t, err, xsec.ErrUnknownSample)
}

func mustResult(t *testing.T, file string, tab table.Table) *FileResult {
	t.Helper()
	return &FileResult{File: file, Table: tab}
}

func TestMergeOrderAndAssociativity(t *testing.T) {
	a := mustResult(t, "a", table.Table{"x": table.Float64s{1, 2}})
	b := mustResult(t, "b", table.Table{"x": table.Float64s{3}})
	c := mustResult(t, "c", table.Table{"x": table.Float64s{4, 5}})

	direct, err := Merge([]*FileResult{a, b, c})
	require.NoError(t, err)

	ab, err := Merge([]*FileResult{a, b})
	require.NoError(t, err)
	staged, err := Merge([]*FileResult{mustResult(t, "ab", ab), c})
	require.NoError(t, err)

	assert.Equal(t, direct["x"], staged["x"])
	assert.Equal(t, table.Float64s{1, 2, 3, 4, 5}, direct["x"])
}

func TestMergeAllSentinels(t *testing.T) {
	merged, err := Merge([]*FileResult{nil, nil, nil})
	require.NoError(t, err)
	assert.Empty(t, merged)
	assert.Equal(t, int64(0), SkimTotal(merged))
}

func TestMergeDivergentKeySets(t *testing.T) {
	a := mustResult(t, "a.arrow", table.Table{"x": table.Float64s{1}})
	b := mustResult(t, "b.arrow", table.Table{"x": table.Float64s{2}, "y": table.Float64s{3}})

	_, err := Merge([]*FileResult{a, b})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"y"`)
	assert.Contains(t, err.Error(), "a.arrow")
}

func TestSplitDataset(t *testing.T) {
	merged := table.Table{
		"passSR":      table.Bools{true, false},
		"fatJetPt":    table.Ragged{{450}, {320}},
		"skimEvents":  table.Int64s{2},
		"totalEvents": table.Int64s{3},
		"inputFile":   table.Strings{"a.arrow"},
		"xsec":        table.Float64s{1.5},
	}

	events, files := SplitDataset(merged)
	assert.ElementsMatch(t, []string{"passSR", "fatJetPt"}, events.Names())
	assert.ElementsMatch(t, []string{"inputFile", "skimEvents", "totalEvents", "xsec"}, files.Names())
}

func TestSummarizeRegions(t *testing.T) {
	merged := table.Table{
		"passSR4J": table.Bools{true, false, true},
		"passSR5J": table.Bools{false, false, true},
		"passSR":   table.Bools{true, false, true},
	}
	s := SummarizeRegions(merged)
	assert.Equal(t, int64(3), s.Events)
	assert.Equal(t, int64(2), s.SR4J)
	assert.Equal(t, int64(1), s.SR5J)
	assert.Equal(t, int64(2), s.SR)
}
