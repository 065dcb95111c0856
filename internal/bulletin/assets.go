package bulletin

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Reference prefixes that already point somewhere valid from the published
// page and are left untouched.
var keepPrefixes = []string{"http:", "https:", "data:", "assets/", "../", "/", "#", "mailto:"}

// coverDirs are the sibling folder names searched for a cover image.
var coverDirs = map[string]bool{"image": true, "images": true, "res": true, "assets": true}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true}

// IsLocalRef reports whether ref points at a file inside the document's
// folder. References that climb out of it, raw or percent-decoded, are
// not local.
func IsLocalRef(ref string) bool {
	if ref == "" {
		return false
	}
	lower := strings.ToLower(ref)
	for _, p := range keepPrefixes {
		if strings.HasPrefix(lower, p) {
			return false
		}
	}
	for _, c := range refCandidates(ref) {
		if !filepath.IsLocal(filepath.FromSlash(c)) {
			return false
		}
	}
	return true
}

// refCandidates returns the path part of ref, then its percent-decoded form
// when that differs.
func refCandidates(ref string) []string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	candidates := []string{ref}
	if dec, err := url.PathUnescape(ref); err == nil && dec != ref {
		candidates = append(candidates, dec)
	}
	return candidates
}

// AssetRef is the rewritten reference of a copied asset, relative to the
// published bulletin page.
func AssetRef(slug, base string) string {
	return "assets/" + slug + "/" + base
}

// refBase returns the file name of a local reference, ignoring any query
// string or fragment.
func refBase(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	return path.Base(ref)
}

// localPath resolves a local reference against the document's directory,
// falling back to the percent-decoded form when the raw form is missing.
// Paths that leave srcDir, lexically or through a symlink, are refused.
func localPath(srcDir, ref string) (string, bool) {
	for _, c := range refCandidates(ref) {
		rel := filepath.FromSlash(c)
		if !filepath.IsLocal(rel) {
			continue
		}
		p := filepath.Join(srcDir, rel)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() && within(srcDir, p) {
			return p, true
		}
	}
	return "", false
}

// within reports whether p, with symlinks resolved, lies under root.
func within(root, p string) bool {
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return false
	}
	realPath, err := filepath.EvalSymlinks(p)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(realRoot, realPath)
	return err == nil && filepath.IsLocal(rel)
}

// FindCover returns the first image, by name, inside a child folder of
// srcDir named image, images, res or assets (case-insensitive).
func FindCover(srcDir string) (string, bool) {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return "", false
	}

	var candidates []string
	for _, e := range entries {
		if !e.IsDir() || !coverDirs[strings.ToLower(e.Name())] {
			continue
		}
		dir := filepath.Join(srcDir, e.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.Type().IsRegular() && imageExts[strings.ToLower(filepath.Ext(f.Name()))] {
				candidates = append(candidates, filepath.Join(dir, f.Name()))
			}
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Strings(candidates)
	return candidates[0], true
}

// copyFile copies src to dst, keeping the source modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// isNotExist reports a missing source file, which is not a conversion error.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
