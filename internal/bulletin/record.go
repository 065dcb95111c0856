package bulletin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultHero is the cover used when a document has no image folder.
const DefaultHero = "../assets/img/covers/default.jpg"

// Record is the JSON document written to <data_dir>/<slug>.json.
type Record struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Slug        string `json:"slug"`
	Hero        string `json:"hero"`
	Intro       string `json:"intro"`
	Blog        []any  `json:"blog"`
	YouTube     []any  `json:"youtube"`
	Notes       []any  `json:"notes"`
	DocHTML     string `json:"doc_html"`
	SourceTitle string `json:"source_title,omitempty"`
}

// Path returns the record file for r inside dir.
func (r *Record) Path(dir string) string {
	return filepath.Join(dir, r.Slug+".json")
}

// Marshal encodes r with two-space indentation and without escaping HTML,
// since doc_html is HTML by construction.
func (r *Record) Marshal() ([]byte, error) {
	out := *r
	if out.Blog == nil {
		out.Blog = []any{}
	}
	if out.YouTube == nil {
		out.YouTube = []any{}
	}
	if out.Notes == nil {
		out.Notes = []any{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		return nil, fmt.Errorf("encode record %s: %w", r.Slug, err)
	}
	return buf.Bytes(), nil
}

// WriteRecord writes r to dir atomically: the JSON goes to a temporary file
// in dir which is then renamed over <slug>.json, so readers never observe a
// partial record.
func WriteRecord(dir string, r *Record) error {
	if r.Slug == "" {
		return fmt.Errorf("write record: empty slug")
	}
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	return writeAtomic(r.Path(dir), data)
}

// ReadRecord loads the record stored for slug in dir.
func ReadRecord(dir, slug string) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(dir, slug+".json"))
	if err != nil {
		return nil, fmt.Errorf("read record %s: %w", slug, err)
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", slug, err)
	}
	return &r, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // No-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
