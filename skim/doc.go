// Package skim implements the per-file selection pipeline, the parallel
// dispatcher and the result merger.
// This package implements:
// - Object selection and baseline event filtering for one input file
// - Bounded fan-out/fan-in over a worker pool with per-file failure isolation
// - Column-wise merging of per-file results into one dataset
package skim
