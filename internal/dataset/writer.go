package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Writer streams records to a JSONL file, one marshaled object per line.
type Writer struct {
	file  *os.File
	buf   *bufio.Writer
	path  string
	count int
	bytes int64
}

// NewWriter creates the output file (and its parent directories).
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create dataset directory: %v", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset file: %v", err)
	}
	return &Writer{
		file: file,
		buf:  bufio.NewWriter(file),
		path: path,
	}, nil
}

// Write appends one record as a JSON line.
func (w *Writer) Write(v interface{}) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode record: %v", err)
	}
	if _, err := w.buf.Write(line); err != nil {
		return err
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return err
	}
	w.count++
	w.bytes += int64(len(line)) + 1
	return nil
}

// Count reports how many records have been written.
func (w *Writer) Count() int { return w.count }

// Bytes reports how many bytes have been written.
func (w *Writer) Bytes() int64 { return w.bytes }

// Path returns the output file path.
func (w *Writer) Path() string { return w.path }

// Close flushes buffered lines and closes the file.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to flush dataset file: %v", err)
	}
	return w.file.Close()
}
