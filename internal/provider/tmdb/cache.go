package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultFreshness is how long a cached document is served without a refetch.
const DefaultFreshness = 48 * time.Hour

// DiskCache stores documents as JSON files under a root directory. Freshness
// is the file modification time; there is no content-based invalidation.
type DiskCache struct {
	root      string
	freshness time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewDiskCache creates a cache rooted at root.
func NewDiskCache(root string, freshness time.Duration, logger *slog.Logger) *DiskCache {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &DiskCache{
		root:      root,
		freshness: freshness,
		logger:    logger,
		now:       time.Now,
	}
}

// Root returns the cache root directory.
func (c *DiskCache) Root() string {
	return c.root
}

// Path returns the file a document is cached in.
func (c *DiskCache) Path(ref DocumentRef, language string) (string, error) {
	spec, err := specFor(ref.Kind)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.root, spec.relPath(ref, language)), nil
}

// Load returns the cached document when present and fresh. Missing, stale and
// unreadable files are all misses; the only error is cancellation or an
// unsupported kind.
func (c *DiskCache) Load(ctx context.Context, ref DocumentRef, language string) (*Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	path, err := c.Path(ref, language)
	if err != nil {
		return nil, false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("stat cache file", slog.String("path", path), slog.String("error", err.Error()))
		}
		c.logger.Debug("cache miss", slog.String("ref", ref.String()), slog.String("language", language))
		return nil, false, nil
	}

	if age := c.now().Sub(info.ModTime()); age > c.freshness {
		c.logger.Debug("cache stale",
			slog.String("ref", ref.String()),
			slog.String("language", language),
			slog.Duration("age", age),
		)
		return nil, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		c.logger.Warn("read cache file", slog.String("path", path), slog.String("error", err.Error()))
		return nil, false, nil
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		c.logger.Warn("corrupt cache file", slog.String("path", path), slog.String("error", err.Error()))
		return nil, false, nil
	}
	doc.normalize()

	c.logger.Debug("cache hit", slog.String("ref", ref.String()), slog.String("language", language))
	return &doc, true, nil
}

// Store writes doc to a temporary file beside its final location and renames
// it into place, so readers never observe a partial file.
func (c *DiskCache) Store(ctx context.Context, ref DocumentRef, language string, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := c.Path(ref, language)
	if err != nil {
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ref, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp cache file: %w", err)
	}

	if err := ctx.Err(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish cache file: %w", err)
	}

	c.logger.Debug("cache store", slog.String("ref", ref.String()), slog.String("path", path))
	return nil
}

// PruneResult summarizes a Prune pass.
type PruneResult struct {
	Scanned int
	Removed int
	Bytes   int64
	// Dirs counts entity directories left empty and removed.
	Dirs int
}

// Prune deletes documents older than the freshness window along with
// leftover temporary files, then removes the directories that emptied.
func (c *DiskCache) Prune(ctx context.Context) (PruneResult, error) {
	var result PruneResult
	cutoff := c.now().Add(-c.freshness)
	// Temp files younger than this may belong to a Store in progress.
	tempCutoff := c.now().Add(-time.Hour)
	touched := map[string]struct{}{}

	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		result.Scanned++
		info, err := d.Info()
		if err != nil {
			return nil
		}

		limit := cutoff
		if strings.HasPrefix(d.Name(), ".tmp-") {
			limit = tempCutoff
		}
		if !info.ModTime().Before(limit) {
			return nil
		}

		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		result.Removed++
		result.Bytes += info.Size()
		touched[filepath.Dir(path)] = struct{}{}
		return nil
	})
	if err != nil {
		return result, err
	}
	result.Dirs = c.removeEmptyDirs(touched)

	c.logger.Info("cache pruned",
		slog.Int("scanned", result.Scanned),
		slog.Int("removed", result.Removed),
		slog.Int64("bytes", result.Bytes),
		slog.Int("dirs", result.Dirs),
	)
	return result, nil
}

// removeEmptyDirs deletes each directory in dirs, and then its parents, for as
// long as they are empty. The cache root itself is kept.
func (c *DiskCache) removeEmptyDirs(dirs map[string]struct{}) int {
	root := filepath.Clean(c.root)
	ordered := make([]string, 0, len(dirs))
	for dir := range dirs {
		ordered = append(ordered, dir)
	}
	// deepest first so parents see their children gone
	sort.Slice(ordered, func(i, j int) bool { return len(ordered[i]) > len(ordered[j]) })

	removed := 0
	for _, dir := range ordered {
		for d := filepath.Clean(dir); d != root && strings.HasPrefix(d, root+string(filepath.Separator)); d = filepath.Dir(d) {
			// a non-empty or already removed directory ends the climb
			if err := os.Remove(d); err != nil {
				break
			}
			removed++
		}
	}
	return removed
}
