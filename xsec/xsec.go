// Package xsec provides the sample cross-section lookup used to normalize
// skimmed datasets. The reference table is loaded at most once per process
// and is immutable afterwards, so it is safe to share across workers.
package xsec

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// ErrUnknownSample is returned when a sample identifier has no entry in the
// reference table. This indicates a configuration mistake, not bad data, and
// is treated as fatal by the pipeline.
var ErrUnknownSample = errors.New("unknown sample")

// Map is an immutable sample-to-cross-section mapping.
type Map map[string]float64

// Load reads a whitespace-delimited reference file of "sample xsec" lines.
// Blank lines and lines starting with '#' are skipped.
func Load(path string) (Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cross-section table: %w", err)
	}
	defer f.Close()

	m := make(Map)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s:%d: expected \"sample xsec\", got %q",
				path, lineNo, line)
		}
		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad cross section %q: %w",
				path, lineNo, fields[1], err)
		}
		m[fields[0]] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cross-section table: %w", err)
	}
	return m, nil
}

// Lookup returns the cross section for a sample identifier.
func (m Map) Lookup(sample string) (float64, error) {
	value, ok := m[sample]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSample, sample)
	}
	return value, nil
}

// Lazy defers loading of the reference table until the first lookup and
// caches it for the remainder of the process.
type Lazy struct {
	path string
	once sync.Once
	m    Map
	err  error
}

// NewLazy creates a lazily-loaded lookup backed by the given reference file.
func NewLazy(path string) *Lazy {
	return &Lazy{path: path}
}

// Lookup loads the table on first use, then resolves the sample identifier.
func (l *Lazy) Lookup(sample string) (float64, error) {
	l.once.Do(func() {
		l.m, l.err = Load(l.path)
	})
	if l.err != nil {
		return 0, l.err
	}
	return l.m.Lookup(sample)
}

// SampleFromFilename derives the sample identifier from an input file path:
// the base name up to the first '-'.
func SampleFromFilename(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '-'); i >= 0 {
		return base[:i]
	}
	return base
}
