package tool

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/moyoez/tunshare/types"
)

// SafeJoin joins a browse path onto root and returns the absolute path plus the cleaned
// slash-separated relative path ("" for root). Any ".." segment is rejected outright, in the
// raw and the percent-decoded form, and so is a symlink that resolves outside root.
func SafeJoin(root, rel string) (string, string, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", types.ErrIO, err)
	}
	if strings.ContainsRune(rel, 0) || hasDotDot(rel) {
		return "", "", types.ErrOutsideRoot
	}
	if decoded, err := url.PathUnescape(rel); err == nil && decoded != rel {
		if strings.ContainsRune(decoded, 0) || hasDotDot(decoded) {
			return "", "", types.ErrOutsideRoot
		}
	}

	cleanRel := strings.TrimPrefix(path.Clean("/"+rel), "/")
	abs := filepath.Join(rootAbs, filepath.FromSlash(cleanRel))
	if !within(rootAbs, abs) {
		return "", "", types.ErrOutsideRoot
	}

	// symlinks are followed for reading, so the target has to stay inside root too
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		rootReal, err := filepath.EvalSymlinks(rootAbs)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", types.ErrIO, err)
		}
		if !within(rootReal, real) {
			return "", "", types.ErrOutsideRoot
		}
	}
	return abs, cleanRel, nil
}

func hasDotDot(p string) bool {
	for _, seg := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}
	return false
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel))
}

// Resolve turns a browse path into either a directory listing or file metadata.
// Every failure (escape, missing, permission) is reported as an error for a not-found page.
func Resolve(root, rel string) (*types.Resolved, error) {
	abs, cleanRel, err := SafeJoin(root, rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrIO, err)
	}

	if info.IsDir() {
		dirEntries, err := os.ReadDir(abs)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrIO, err)
		}
		listing := &types.Listing{
			Folders: []types.Entry{},
			Files:   []types.Entry{},
		}
		for _, de := range dirEntries {
			entry := types.Entry{
				Name:        de.Name(),
				IsDirectory: de.IsDir(),
				Path:        EscapeURLPath(path.Join(cleanRel, de.Name())),
			}
			if entry.IsDirectory {
				listing.Folders = append(listing.Folders, entry)
			} else {
				listing.Files = append(listing.Files, entry)
			}
		}
		return &types.Resolved{
			Kind:     types.KindDirectory,
			AbsPath:  abs,
			Relative: cleanRel,
			Listing:  listing,
		}, nil
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: not a regular file", types.ErrIO)
	}
	return &types.Resolved{
		Kind:     types.KindFile,
		AbsPath:  abs,
		Relative: cleanRel,
		File: &types.FileMeta{
			Name: filepath.Base(abs),
			Size: info.Size(),
		},
	}, nil
}

// ShareRequestFor builds the share request of a resolved path.
func ShareRequestFor(resolved *types.Resolved) types.ShareRequest {
	return types.ShareRequest{
		Target:  resolved.Relative,
		AbsPath: resolved.AbsPath,
		Kind:    resolved.Kind,
	}
}
