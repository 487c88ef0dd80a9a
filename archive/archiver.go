// Package archive turns folders (and single files) into downloadable artifacts.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/moyoez/tunshare/metrics"
	"github.com/moyoez/tunshare/tool"
	"github.com/moyoez/tunshare/types"
)

// ProgressInterval is the minimum time between two progress log lines of one archive run.
var ProgressInterval = time.Second

// Archiver zips folders into spooled artifacts.
type Archiver struct {
	SpoolThreshold int64  // bytes kept in memory before spilling to a temp file
	TempDir        string // "" uses os.TempDir
}

// New returns an Archiver with the given spool threshold.
func New(spoolThreshold int64) *Archiver {
	if spoolThreshold <= 0 {
		spoolThreshold = tool.DefaultSpoolThreshold
	}
	return &Archiver{SpoolThreshold: spoolThreshold}
}

// Archive zips dir into an artifact named <basename(dir)>.zip. Entry names are slash separated and
// relative to dir; folders get their own entries so empty ones survive extraction. Symlinks and
// other non-regular files are skipped. An unreadable dir is types.ErrIO, anything failing while
// compressing (including ctx expiry) is types.ErrArchive.
func (a *Archiver) Archive(ctx context.Context, dir string) (*Artifact, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrIO, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrIO, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", types.ErrIO, filepath.Base(abs))
	}
	if _, err := os.ReadDir(abs); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrIO, err)
	}

	// WalkDir does not descend into a symlinked root
	walkRoot, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrIO, err)
	}

	name := filepath.Base(abs) + ".zip"
	started := time.Now()
	sp := newSpool(a.SpoolThreshold, a.TempDir)
	pw := &progressWriter{
		w:         sp,
		name:      name,
		sometimes: rate.Sometimes{Interval: ProgressInterval},
	}
	zw := zip.NewWriter(pw)

	walkErr := filepath.WalkDir(walkRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(walkRoot, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		entryName := filepath.ToSlash(rel)
		if strings.Contains(entryName, "\\") {
			// would turn into a path separator on windows extractors
			tool.DefaultLogger.Warnf("[Archive] Skipping %q: backslash in name", entryName)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !validEntryName(entryName) {
			return fmt.Errorf("refusing entry %q", entryName)
		}

		switch {
		case d.IsDir():
			return addDirEntry(zw, d, entryName)
		case d.Type().IsRegular():
			return addFileEntry(ctx, zw, p, d, entryName)
		default:
			tool.DefaultLogger.Debugf("[Archive] Skipping non-regular file %s", entryName)
			return nil
		}
	})
	if walkErr == nil {
		walkErr = zw.Close()
	}
	if walkErr != nil {
		sp.discard()
		metrics.RecordArchive(0, time.Since(started), false)
		return nil, fmt.Errorf("%w: %s: %w", types.ErrArchive, name, walkErr)
	}

	artifact := sp.finish(name)
	metrics.RecordArchive(artifact.Size, time.Since(started), true)
	tool.DefaultLogger.Infof("[Archive] Created %s (%s) in %s", name, tool.HumanSize(artifact.Size), time.Since(started).Round(time.Millisecond))
	return artifact, nil
}

// FromFile builds an artifact straight from a file's bytes, named after its basename.
func (a *Archiver) FromFile(ctx context.Context, filePath string) (*Artifact, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrIO, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrIO, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", types.ErrIO, filepath.Base(filePath))
	}

	sp := newSpool(a.SpoolThreshold, a.TempDir)
	if _, err := tool.CopyWithContext(ctx, sp, f); err != nil {
		sp.discard()
		return nil, fmt.Errorf("%w: %v", types.ErrIO, err)
	}
	return sp.finish(filepath.Base(filePath)), nil
}

func addDirEntry(zw *zip.Writer, d fs.DirEntry, entryName string) error {
	header := &zip.FileHeader{
		Name:     entryName + "/",
		Method:   zip.Store,
		Modified: time.Now(),
	}
	if info, err := d.Info(); err == nil {
		header.Modified = info.ModTime()
		header.SetMode(info.Mode())
	}
	_, err := zw.CreateHeader(header)
	return err
}

func addFileEntry(ctx context.Context, zw *zip.Writer, p string, d fs.DirEntry, entryName string) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = entryName
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = tool.CopyWithContext(ctx, w, f)
	return err
}

// validEntryName rejects names that would extract outside the archive root.
func validEntryName(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return false
	}
	if path.Clean(name) != name {
		return false
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." || seg == "." {
			return false
		}
	}
	return true
}

// progressWriter counts compressed bytes and logs them at most once per ProgressInterval.
type progressWriter struct {
	w         io.Writer
	name      string
	written   int64
	sometimes rate.Sometimes
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	p.sometimes.Do(func() {
		tool.DefaultLogger.Debugf("[Archive] %s: %s written", p.name, tool.HumanSize(p.written))
	})
	return n, err
}
