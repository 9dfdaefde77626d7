package polycubes

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// StreamPath returns the record stream path for the generation with the given cell count.
func StreamPath(dir string, cells int) string {
	return filepath.Join(dir, fmt.Sprintf("cubes_%d.bin", cells))
}

// Record streams are headerless: a flat run of fixed-width records, one per shape,
// each holding cells × (x, y, z) bytes in the order the writer produced them.
// There is no version tag or checksum.

func recordSize(cells int) int { return cells * recordAxes }

func encodeRecord(dst []byte, s Shape) {
	for i, c := range s.Cells {
		dst[recordAxes*i] = c.X
		dst[recordAxes*i+1] = c.Y
		dst[recordAxes*i+2] = c.Z
	}
}

// decodeRecord rebuilds a shape from one record; the bound is recomputed, never stored.
func decodeRecord(buf []byte, cells int) Shape {
	s := Shape{Cells: make([]Coord, cells)}
	for i := range s.Cells {
		c := Coord{X: buf[recordAxes*i], Y: buf[recordAxes*i+1], Z: buf[recordAxes*i+2]}
		s.Cells[i] = c
		s.Bound = Max(s.Bound, c)
	}
	return s
}

// StreamWriter appends fixed-width shape records to a file. It is not safe for
// concurrent use.
type StreamWriter struct {
	f       *os.File
	w       *bufio.Writer
	path    string
	cells   int
	written int64
	buf     []byte
}

// CreateStream creates (or truncates) the stream at path for shapes of the given size.
func CreateStream(path string, cells int) (*StreamWriter, error) {
	if cells <= 0 {
		return nil, fmt.Errorf("stream %s: cell count must be positive, got %d", path, cells)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return &StreamWriter{
		f:     f,
		w:     bufio.NewWriterSize(f, 1<<20),
		path:  path,
		cells: cells,
		buf:   make([]byte, recordSize(cells)),
	}, nil
}

// Path returns the file the writer appends to.
func (sw *StreamWriter) Path() string { return sw.path }

// Records returns how many records were appended.
func (sw *StreamWriter) Records() int64 { return sw.written / int64(len(sw.buf)) }

// Append writes s and returns the byte offset of its record.
func (sw *StreamWriter) Append(s Shape) (int64, error) {
	if err := checkCells(sw.cells, s); err != nil {
		return 0, err
	}
	encodeRecord(sw.buf, s)
	off := sw.written
	if _, err := sw.w.Write(sw.buf); err != nil {
		return 0, fmt.Errorf("write %s: %w", sw.path, err)
	}
	sw.written += int64(len(sw.buf))
	return off, nil
}

// ReadRecord reads back the record at off, flushing buffered bytes first when the
// record has not reached the file yet.
func (sw *StreamWriter) ReadRecord(off int64) (Shape, error) {
	size := int64(len(sw.buf))
	if off < 0 || off+size > sw.written {
		return Shape{}, fmt.Errorf("read %s: offset %d outside %d written bytes", sw.path, off, sw.written)
	}
	if off+size > sw.written-int64(sw.w.Buffered()) {
		if err := sw.w.Flush(); err != nil {
			return Shape{}, fmt.Errorf("flush %s: %w", sw.path, err)
		}
	}
	rec := make([]byte, size)
	if _, err := sw.f.ReadAt(rec, off); err != nil {
		return Shape{}, fmt.Errorf("read %s at %d: %w", sw.path, off, err)
	}
	return decodeRecord(rec, sw.cells), nil
}

// Close flushes, syncs and closes the file. The stream must be closed before it is
// opened for reading.
func (sw *StreamWriter) Close() error {
	if err := sw.w.Flush(); err != nil {
		_ = sw.f.Close()
		return fmt.Errorf("flush %s: %w", sw.path, err)
	}
	if err := sw.f.Sync(); err != nil {
		_ = sw.f.Close()
		return fmt.Errorf("sync %s: %w", sw.path, err)
	}
	return sw.f.Close()
}

// Abort closes and removes the partial stream.
func (sw *StreamWriter) Abort() error {
	_ = sw.f.Close()
	return os.Remove(sw.path)
}

// StreamReader reads shapes back from a record stream, forward only. To read a stream
// again, open it again.
type StreamReader struct {
	r       *bufio.Reader
	closer  io.Closer
	cells   int
	buf     []byte
	partial bool
}

// NewStreamReader reads records of shapes with the given cell count from r.
func NewStreamReader(r io.Reader, cells int) *StreamReader {
	return &StreamReader{
		r:     bufio.NewReaderSize(r, 1<<20),
		cells: cells,
		buf:   make([]byte, recordSize(cells)),
	}
}

// OpenStream opens the stream at path.
func OpenStream(path string, cells int) (*StreamReader, error) {
	if cells <= 0 {
		return nil, fmt.Errorf("stream %s: cell count must be positive, got %d", path, cells)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	sr := NewStreamReader(f, cells)
	sr.closer = f
	return sr, nil
}

// Next returns the next shape, or false at the end of the stream. A trailing record
// that cannot be read in full also ends the stream without an error: end of data and
// truncation look the same. Partial reports whether that happened.
func (sr *StreamReader) Next() (Shape, bool, error) {
	_, err := io.ReadFull(sr.r, sr.buf)
	switch {
	case err == nil:
		return decodeRecord(sr.buf, sr.cells), true, nil
	case errors.Is(err, io.EOF):
		return Shape{}, false, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		sr.partial = true
		return Shape{}, false, nil
	}
	return Shape{}, false, err
}

// Partial reports whether the stream ended inside a record.
func (sr *StreamReader) Partial() bool { return sr.partial }

// Close releases the underlying file, if any.
func (sr *StreamReader) Close() error {
	if sr.closer == nil {
		return nil
	}
	return sr.closer.Close()
}
