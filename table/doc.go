// Package table implements the in-memory column table for skimmed events.
// This package implements:
// - Scalar and ragged (per-event variable-length) columns
// - Atomic event masking that keeps co-indexed columns aligned
// - Conversion to and from Arrow records
package table
