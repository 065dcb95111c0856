package bulletin

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Converter builds and writes bulletin records from source documents.
type Converter struct {
	dataDir   string
	assetsDir string
	loc       *time.Location
	logger    *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithLocation sets the zone in which modification times are bucketed into
// weeks. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(c *Converter) { c.loc = loc }
}

// WithLogger sets the converter's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) { c.logger = l }
}

// NewConverter writes records into dataDir and copies assets under
// assetsDir/<slug>/.
func NewConverter(dataDir, assetsDir string, opts ...Option) *Converter {
	c := &Converter{
		dataDir:   dataDir,
		assetsDir: assetsDir,
		loc:       time.Local,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "bulletin")
	return c
}

// DataDir is where records are written.
func (c *Converter) DataDir() string { return c.dataDir }

// Build converts one document into a record without writing anything but
// the copied assets.
func (c *Converter) Build(ctx context.Context, path string, mtime time.Time) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := Parse(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	week := Week(mtime.In(c.loc))
	slug := Slug(week)
	srcDir := filepath.Dir(path)
	slugAssets := filepath.Join(c.assetsDir, slug)

	doc.RewriteRefs(func(ref string) (string, bool) {
		if !IsLocalRef(ref) {
			return "", false
		}
		base := refBase(ref)
		if from, ok := localPath(srcDir, ref); ok {
			if err := copyFile(from, filepath.Join(slugAssets, base)); err != nil {
				c.logger.Warn("copy asset failed", "doc", path, "ref", ref, "error", err)
			}
		}
		return AssetRef(slug, base), true
	})

	body, err := doc.Body()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	hero := DefaultHero
	if cover, ok := FindCover(srcDir); ok {
		base := filepath.Base(cover)
		err := copyFile(cover, filepath.Join(slugAssets, base))
		switch {
		case err == nil:
			hero = AssetRef(slug, base)
		case isNotExist(err):
		default:
			c.logger.Warn("copy cover failed", "doc", path, "cover", cover, "error", err)
		}
	}

	return &Record{
		Title:       Title(week),
		Date:        week.Format(time.DateOnly),
		Slug:        slug,
		Hero:        hero,
		Blog:        []any{},
		YouTube:     []any{},
		Notes:       []any{},
		DocHTML:     body,
		SourceTitle: doc.Title(),
	}, nil
}

// Convert builds the record for a document and writes it atomically to the
// data directory.
func (c *Converter) Convert(ctx context.Context, path string, mtime time.Time) (*Record, error) {
	rec, err := c.Build(ctx, path, mtime)
	if err != nil {
		return nil, err
	}
	if err := WriteRecord(c.dataDir, rec); err != nil {
		return nil, err
	}
	c.logger.Debug("record written", "doc", path, "slug", rec.Slug)
	return rec, nil
}
