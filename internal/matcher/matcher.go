// Package matcher expands a glob pattern into the ordered list of document
// files a batch run will process.
package matcher

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// supportedExt are the inline-media types the OCR backends accept.
var supportedExt = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".pdf":  true,
}

// Supported reports whether the file extension is a processable document type.
func Supported(p string) bool {
	return supportedExt[strings.ToLower(filepath.Ext(p))]
}

// Discover expands pattern into an ordered list of existing regular files
// with supported extensions. Ordering is lexicographic ascending over the
// full path string, so output is reproducible across runs and platforms.
//
// Patterns containing ** match recursively. A pattern matching zero files
// is not an error here: the caller decides whether an empty batch is fatal.
func Discover(pattern string) ([]string, error) {
	var matches []string
	var err error
	if strings.Contains(pattern, "**") {
		matches, err = recursiveGlob(pattern)
	} else {
		matches, err = filepath.Glob(pattern)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		if !Supported(m) {
			continue
		}
		// Stat follows symlinks: a link to a regular file counts, a link
		// to a directory (or a broken link) does not.
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, m)
	}

	sort.Strings(files)
	return files, nil
}

// recursiveGlob handles patterns containing **. The portion before the
// first ** names the walk root; the portion after it is matched against
// every trailing sub-path of each file found below the root.
func recursiveGlob(pattern string) ([]string, error) {
	head, tail, _ := strings.Cut(filepath.ToSlash(pattern), "**")
	root := strings.TrimSuffix(head, "/")
	if root == "" {
		root = "."
	}
	tail = strings.TrimPrefix(tail, "/")
	if tail == "" {
		tail = "*"
	}
	// Reject wildcards ahead of the **: the walk root must be literal.
	if strings.ContainsAny(root, "*?[") {
		return nil, fmt.Errorf("wildcard before ** is not supported")
	}

	var out []string
	err := fs.WalkDir(os.DirFS(root), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable or missing subtrees are skipped, not fatal.
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ok, merr := matchSuffix(tail, p)
		if merr != nil {
			return merr
		}
		if ok {
			out = append(out, filepath.Join(root, filepath.FromSlash(p)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// matchSuffix reports whether any trailing sub-path of rel matches pattern,
// mirroring recursive-glob semantics where "**/x/*.png" matches x/*.png at
// any depth.
func matchSuffix(pattern, rel string) (bool, error) {
	parts := strings.Split(rel, "/")
	want := strings.Count(pattern, "/") + 1
	if want > len(parts) {
		return false, nil
	}
	tail := strings.Join(parts[len(parts)-want:], "/")
	return path.Match(pattern, tail)
}
