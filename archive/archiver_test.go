package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/tunshare/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// extract reads every entry of the artifact into name -> content, directories map to "/".
func extract(t *testing.T, a *Artifact) map[string]string {
	t.Helper()
	r, err := a.Open()
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, a.Size, int64(len(data)))

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := make(map[string]string)
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			out[f.Name] = "/"
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = string(content)
	}
	return out
}

// tree walks dir the same way extract reports an archive.
func tree(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		require.NoError(t, err)
		rel, _ := filepath.Rel(dir, p)
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if info.IsDir() {
			out[rel+"/"] = "/"
			return nil
		}
		content, err := os.ReadFile(p)
		require.NoError(t, err)
		out[rel] = string(content)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestArchiveRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "demo")
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")
	writeFile(t, filepath.Join(dir, "sub", "b.txt"), "abc")
	writeFile(t, filepath.Join(dir, "sub", "deeper", "c.bin"), strings.Repeat("x", 4096))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty"), 0o755))

	artifact, err := New(0).Archive(context.Background(), dir)
	require.NoError(t, err)
	defer artifact.Release()

	assert.Equal(t, "demo.zip", artifact.Name)
	assert.Equal(t, tree(t, dir), extract(t, artifact))
}

func TestArchiveEntriesStayInsideRoot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "x", "y", "z.txt"), "z")

	artifact, err := New(0).Archive(context.Background(), dir)
	require.NoError(t, err)
	defer artifact.Release()

	names := make([]string, 0)
	for name := range extract(t, artifact) {
		names = append(names, name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"x/", "x/y/", "x/y/z.txt"}, names)
	for _, name := range names {
		assert.True(t, validEntryName(strings.TrimSuffix(name, "/")), name)
	}
}

func TestArchiveSkipsSymlinks(t *testing.T) {
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "secret.txt"), "secret")

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")
	if err := os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(dir, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	artifact, err := New(0).Archive(context.Background(), dir)
	require.NoError(t, err)
	defer artifact.Release()

	assert.Equal(t, map[string]string{"a.txt": "hello"}, extract(t, artifact))
}

func TestArchiveSymlinkedRoot(t *testing.T) {
	target := filepath.Join(t.TempDir(), "real")
	writeFile(t, filepath.Join(target, "a.txt"), "hello")
	writeFile(t, filepath.Join(target, "sub", "b.txt"), "abc")
	link := filepath.Join(t.TempDir(), "link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	artifact, err := New(0).Archive(context.Background(), link)
	require.NoError(t, err)
	defer artifact.Release()

	assert.Equal(t, "link.zip", artifact.Name)
	got := extract(t, artifact)
	require.NotEmpty(t, got)
	assert.Equal(t, tree(t, target), got)
}

func TestArchiveMissingDirIsIOError(t *testing.T) {
	_, err := New(0).Archive(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrIO)
}

func TestArchiveFileIsIOError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, file, "hello")
	_, err := New(0).Archive(context.Background(), file)
	assert.ErrorIs(t, err, types.ErrIO)
}

func TestArchiveCancelledIsArchiveError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(0).Archive(ctx, dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrArchive)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestArchiveSpillsToTempFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "big.txt"), strings.Repeat("0123456789", 10000))
	spoolDir := t.TempDir()

	archiver := &Archiver{SpoolThreshold: 128, TempDir: spoolDir}
	artifact, err := archiver.Archive(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, artifact.Spilled())
	assert.Equal(t, strings.Repeat("0123456789", 10000), extract(t, artifact)["big.txt"])

	entries, err := os.ReadDir(spoolDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	artifact.Release()
	entries, err = os.ReadDir(spoolDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "release removes the spool file")

	_, err = artifact.Open()
	assert.ErrorIs(t, err, ErrReleased)
	artifact.Release()
}

func TestFromFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, file, "hello")

	artifact, err := New(0).FromFile(context.Background(), file)
	require.NoError(t, err)
	defer artifact.Release()

	assert.Equal(t, "a.txt", artifact.Name)
	assert.Equal(t, int64(5), artifact.Size)
	assert.False(t, artifact.Spilled())

	r, err := artifact.Open()
	require.NoError(t, err)
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
}

func TestFromFileMissing(t *testing.T) {
	_, err := New(0).FromFile(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, types.ErrIO)
}

func TestValidEntryName(t *testing.T) {
	for _, name := range []string{"a.txt", "sub/b.txt", "a/b/c"} {
		assert.True(t, validEntryName(name), name)
	}
	for _, name := range []string{"", "/etc/passwd", "../a", "a/../../b", "a//b", "./a", "a\\b"} {
		assert.False(t, validEntryName(name), name)
	}
}
