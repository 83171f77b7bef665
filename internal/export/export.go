// Package export compiles a tariff chapter into a paginated PDF: the
// chapter's notes and commodity table, numbered footnotes and the quota,
// prohibition and anti-dumping appendices.
package export

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/tradetariff/uktt/internal/render"
)

// DefaultPath returns the default output path for a chapter.
func DefaultPath(chapterID string) string {
	return filepath.Join(".", chapterID+".pdf")
}

// Export compiles the chapter and writes it to path. The written file is
// reopened to report its page count.
func Export(ctx context.Context, svc Service, opts Options, path string, ropts render.Options) (*Result, error) {
	c := NewCompiler(svc, opts)
	res, err := c.Compile(ctx)
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = DefaultPath(opts.ChapterID)
	}
	if ropts.Logger == nil {
		ropts.Logger = c.logger
	}

	if _, err := render.WriteFile(res.Document, path, ropts); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	info, err := render.Inspect(path)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", path, err)
	}
	res.Pages, res.Path = info.Pages, info.Path

	c.logger.Info("chapter exported", "path", info.Path, "pages", info.Pages, "bytes", info.Bytes)
	return res, nil
}
