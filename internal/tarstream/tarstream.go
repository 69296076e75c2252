// Package tarstream is the opaque tar collaborator spec.md §4.1 names
// ("tar::{open_in, open_out, copy, skip, add, info, position,
// continue, close, clone} — tar file handles are opaque to the
// core"): async's backup-prev/backup-copy stages orchestrate calls
// against it but never parse tar bytes themselves, matching spec.md
// §1's scope boundary ("the orchestration of multi-file tar add/
// extract is in scope; byte-level parsing is not"). Built on
// archive/tar, the way rclone's backend/local streams files through
// Go's standard archive packages rather than hand-rolling a format.
package tarstream

import (
	"archive/tar"
	"io"
	"os"
	"time"
)

// Info describes the tar entry a Reader is currently positioned at.
type Info struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Reader streams entries out of a previous backup's tar, in order.
type Reader struct {
	f   *os.File
	tr  *tar.Reader
	cur *tar.Header
}

// OpenIn opens path for sequential entry-by-entry reading.
func OpenIn(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{f: f, tr: tar.NewReader(f)}, nil
}

// Info advances to (and reports) the next entry, or ok=false at EOF.
func (r *Reader) Info() (info Info, ok bool, err error) {
	if r.cur == nil {
		h, err := r.tr.Next()
		if err == io.EOF {
			return Info{}, false, nil
		}
		if err != nil {
			return Info{}, false, err
		}
		r.cur = h
	}
	return Info{Name: r.cur.Name, Size: r.cur.Size, ModTime: r.cur.ModTime}, true, nil
}

// Skip discards the current entry's body without copying it anywhere;
// the next Info call advances past it.
func (r *Reader) Skip() error {
	r.cur = nil
	return nil
}

// Copy writes the current entry (header and body) to w, then
// advances past it.
func (r *Reader) Copy(w *Writer) error {
	if r.cur == nil {
		return io.ErrUnexpectedEOF
	}
	if err := w.tw.WriteHeader(r.cur); err != nil {
		return err
	}
	if _, err := io.Copy(w.tw, r.tr); err != nil {
		return err
	}
	r.cur = nil
	return nil
}

// Close releases the underlying file.
func (r *Reader) Close() error { return r.f.Close() }

// Clone reopens the same path as an independent Reader positioned at
// its start, for the rare case a stage needs to re-scan (mirrors the
// original's "clone" primitive; unused by the stages this repo
// implements today, kept for the collaborator's documented contract).
func (r *Reader) Clone(path string) (*Reader, error) { return OpenIn(path) }

// Writer appends entries to a new or scrap tar.
type Writer struct {
	f  *os.File
	tw *tar.Writer
}

// OpenOut creates path for sequential entry writing.
func OpenOut(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Writer{f: f, tw: tar.NewWriter(f)}, nil
}

// Add appends one entry, copying size bytes from r.
func (w *Writer) Add(name string, modTime time.Time, size int64, r io.Reader) error {
	hdr := &tar.Header{Name: name, Size: size, ModTime: modTime, Mode: 0o644}
	if err := w.tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(w.tw, r)
	return err
}

// Close flushes the tar trailer and closes the underlying file.
func (w *Writer) Close() error {
	if err := w.tw.Close(); err != nil {
		return err
	}
	return w.f.Close()
}
