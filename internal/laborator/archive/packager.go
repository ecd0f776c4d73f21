// Package archive bundles per-doctor workbooks into one zip archive.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/flate"
)

// ErrFinalized is returned when appending to a closed archive.
var ErrFinalized = errors.New("archive: already finalized")

// Packager accumulates zip entries. The zip writer streams into a pipe that a
// background goroutine drains into memory; Finalize waits for the drain and
// hands back the complete archive.
type Packager struct {
	mu       sync.Mutex
	zw       *zip.Writer
	pw       *io.PipeWriter
	done     chan struct{}
	buf      bytes.Buffer
	drainErr error
	names    map[string]int
	modified time.Time
	final    bool
	entries  []string
}

// New starts an empty archive.
func New() *Packager {
	return NewAt(time.Now())
}

// NewAt starts an empty archive whose entries carry modified as timestamp.
func NewAt(modified time.Time) *Packager {
	pr, pw := io.Pipe()
	p := &Packager{
		pw:       pw,
		done:     make(chan struct{}),
		names:    make(map[string]int),
		modified: modified,
	}
	p.zw = zip.NewWriter(pw)
	p.zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})
	go func() {
		defer close(p.done)
		_, err := io.Copy(&p.buf, pr)
		p.drainErr = err
		_ = pr.CloseWithError(err)
	}()
	return p
}

// Append adds one entry. Repeated names get a numeric suffix so every entry
// stays addressable after extraction.
func (p *Packager) Append(name string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.final {
		return ErrFinalized
	}
	name = p.uniqueName(name)
	w, err := p.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: p.modified,
	})
	if err != nil {
		return fmt.Errorf("archive: create %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("archive: write %s: %w", name, err)
	}
	p.entries = append(p.entries, name)
	return nil
}

// Entries returns the entry names appended so far.
func (p *Packager) Entries() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.entries))
	copy(out, p.entries)
	return out
}

// Finalize writes the central directory and returns the archive bytes.
func (p *Packager) Finalize() ([]byte, error) {
	p.mu.Lock()
	if p.final {
		p.mu.Unlock()
		return nil, ErrFinalized
	}
	p.final = true
	closeErr := p.zw.Close()
	_ = p.pw.CloseWithError(closeErr)
	p.mu.Unlock()

	<-p.done
	if closeErr != nil {
		return nil, fmt.Errorf("archive: close: %w", closeErr)
	}
	if p.drainErr != nil {
		return nil, fmt.Errorf("archive: drain: %w", p.drainErr)
	}
	return p.buf.Bytes(), nil
}

// Abort releases the drain goroutine without producing an archive.
func (p *Packager) Abort() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.final {
		return
	}
	p.final = true
	_ = p.pw.CloseWithError(ErrFinalized)
	<-p.done
}

func (p *Packager) uniqueName(name string) string {
	n := p.names[name]
	p.names[name] = n + 1
	if n == 0 {
		return name
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for {
		n++
		candidate := fmt.Sprintf("%s_%d%s", base, n, ext)
		if _, taken := p.names[candidate]; !taken {
			p.names[candidate] = 1
			return candidate
		}
	}
}
