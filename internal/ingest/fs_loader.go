package ingest

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/common"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
)

// FSLoader reads documents from the local filesystem.
type FSLoader struct {
	logger *slog.Logger
}

func NewFSLoader(logger *slog.Logger) *FSLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSLoader{logger: logger}
}

// LoadPath reads one file into a Document.
func (l *FSLoader) LoadPath(path string) (entity.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return entity.Document{}, err
	}
	if !AllowedExt(filepath.Ext(abs)) {
		return entity.Document{}, common.NewAppError("INVALID_INPUT",
			fmt.Sprintf("unsupported or missing extension %q", filepath.Ext(abs)), common.ErrInvalidInput)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		l.logger.Error("ingest.read.failed", "path", abs, "error", err)
		return entity.Document{}, err
	}
	doc := entity.NewDocument(filepath.Base(abs), constants.DetectMediaType("", data), data)
	return doc, nil
}

// LoadDirectory walks root, skips hidden entries if requested, and loads
// every allowed file. Files with identical content are loaded once.
func (l *FSLoader) LoadDirectory(ctx context.Context, root string, skipHidden bool) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []FileResult
	var stats DirStats
	seen := map[string]string{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		doc, err := l.LoadPath(path)
		if err != nil {
			results = append(results, FileResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		sum := hex.EncodeToString(doc.ContentHash())
		if first, dup := seen[sum]; dup {
			l.logger.Info("ingest.duplicate", "path", path, "first", first)
			results = append(results, FileResult{SourcePath: path, Deduplicated: true, HashHex: sum})
			stats.Deduplicated++
			return nil
		}
		seen[sum] = path

		results = append(results, FileResult{SourcePath: path, Document: doc, HashHex: sum})
		stats.Succeeded++
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}

	l.logger.Info("ingest.directory.ok",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, nil
}
