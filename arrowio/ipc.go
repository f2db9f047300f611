// Package arrowio persists column tables as Arrow IPC streams and provides
// the in-memory IPC round trip used by the dataset server.
package arrowio

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"delskim/table"
)

// WriteTable writes a table to path as a single-batch Arrow IPC stream.
// compress enables zstd body compression.
func WriteTable(path string, t table.Table, compress bool) error {
	rec, err := t.ToRecord(memory.DefaultAllocator)
	if err != nil {
		return err
	}
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	opts := []ipc.Option{ipc.WithSchema(rec.Schema())}
	if compress {
		opts = append(opts, ipc.WithZstd())
	}
	writer := ipc.NewWriter(f, opts...)

	if err := writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write record to %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer for %s: %w", path, err)
	}
	return f.Close()
}

// ReadTable reads back a table written by WriteTable, concatenating all
// batches in the stream.
func ReadTable(path string) (table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader, err := ipc.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create IPC reader for %s: %w", path, err)
	}
	defer reader.Release()

	var out table.Table
	for reader.Next() {
		batch, err := table.FromRecord(reader.Record(), 0)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		if out == nil {
			out = batch
			continue
		}
		for name, col := range out {
			more, ok := batch[name]
			if !ok {
				return nil, fmt.Errorf("column %q missing from later batch in %s", name, path)
			}
			joined, err := col.Concat(more)
			if err != nil {
				return nil, fmt.Errorf("column %q in %s: %w", name, path, err)
			}
			out[name] = joined
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

// SidecarPath returns the path of the per-file bookkeeping table written
// alongside the event table: "skim.arrow" becomes "skim.files.arrow".
func SidecarPath(path string) string {
	if i := strings.LastIndexByte(path, '.'); i > strings.LastIndexByte(path, '/') {
		return path[:i] + ".files" + path[i:]
	}
	return path + ".files"
}

// SerializeRecord serializes a record to IPC bytes.
func SerializeRecord(rec arrow.Record) ([]byte, error) {
	var buf bytes.Buffer

	writer := ipc.NewWriter(&buf, ipc.WithSchema(rec.Schema()))
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeRecord reads the first record from IPC bytes. The caller
// releases the record.
func DeserializeRecord(data []byte) (arrow.Record, error) {
	reader, err := ipc.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer reader.Release()

	if !reader.Next() {
		if reader.Err() != nil {
			return nil, reader.Err()
		}
		return nil, fmt.Errorf("no records in IPC data")
	}

	rec := reader.Record()
	rec.Retain()
	return rec, nil
}
