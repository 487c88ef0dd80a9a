package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/moyoez/tunshare/tool"
)

// ErrReleased is returned by Open once the artifact has been released.
var ErrReleased = errors.New("artifact released")

// Artifact is the content of one share: a single file or a zipped folder.
// The bytes live in memory or, past the spool threshold, in a temp file.
type Artifact struct {
	Name string
	Size int64

	mu       sync.Mutex
	data     []byte
	file     *os.File
	released bool
}

// NewArtifact wraps an in-memory buffer.
func NewArtifact(name string, data []byte) *Artifact {
	return &Artifact{Name: name, Size: int64(len(data)), data: data}
}

// Open returns an independent reader over the whole artifact.
func (a *Artifact) Open() (io.ReadSeeker, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return nil, ErrReleased
	}
	if a.file != nil {
		return io.NewSectionReader(a.file, 0, a.Size), nil
	}
	return bytes.NewReader(a.data), nil
}

// Spilled reports whether the content is backed by a temp file.
func (a *Artifact) Spilled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file != nil
}

// Release drops the buffer or removes the temp file. Safe to call more than once.
func (a *Artifact) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return
	}
	a.released = true
	a.data = nil
	if a.file != nil {
		name := a.file.Name()
		if err := a.file.Close(); err != nil {
			tool.DefaultLogger.Debugf("[Archive] Failed to close spool file %s: %v", name, err)
		}
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			tool.DefaultLogger.Warnf("[Archive] Failed to remove spool file %s: %v", name, err)
		}
		a.file = nil
	}
}

// spool collects artifact bytes in memory up to threshold, then moves everything to a temp file.
type spool struct {
	threshold int64
	tempDir   string
	buf       bytes.Buffer
	file      *os.File
	size      int64
}

func newSpool(threshold int64, tempDir string) *spool {
	return &spool{threshold: threshold, tempDir: tempDir}
}

func (s *spool) Write(p []byte) (int, error) {
	if s.file == nil && int64(s.buf.Len()+len(p)) > s.threshold {
		if err := s.spill(); err != nil {
			return 0, err
		}
	}
	var (
		n   int
		err error
	)
	if s.file != nil {
		n, err = s.file.Write(p)
	} else {
		n, err = s.buf.Write(p)
	}
	s.size += int64(n)
	return n, err
}

func (s *spool) spill() error {
	f, err := os.CreateTemp(s.tempDir, "tunshare-*.part")
	if err != nil {
		return fmt.Errorf("failed to create spool file: %v", err)
	}
	if _, err := f.Write(s.buf.Bytes()); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return fmt.Errorf("failed to write spool file: %v", err)
	}
	tool.DefaultLogger.Debugf("[Archive] Spilled %d bytes to %s", s.buf.Len(), f.Name())
	s.buf = bytes.Buffer{}
	s.file = f
	return nil
}

// finish hands the collected bytes over to a new Artifact.
func (s *spool) finish(name string) *Artifact {
	a := &Artifact{Name: name, Size: s.size}
	if s.file != nil {
		a.file = s.file
	} else {
		a.data = s.buf.Bytes()
	}
	s.file = nil
	s.buf = bytes.Buffer{}
	return a
}

// discard throws away whatever was collected.
func (s *spool) discard() {
	s.buf = bytes.Buffer{}
	if s.file != nil {
		name := s.file.Name()
		_ = s.file.Close()
		_ = os.Remove(name)
		s.file = nil
	}
}
