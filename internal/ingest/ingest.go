package ingest

import "github.com/joseph-ayodele/form-extractor/internal/entity"

// FileResult is the per-file load outcome.
type FileResult struct {
	SourcePath   string
	Document     entity.Document
	Deduplicated bool
	HashHex      string
	Err          string
}

// DirStats summarizes a directory load.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}
