// Directory indexing - walks a tree into a snapshot of categorized files.
//
// Information Hiding:
// - Traversal, depth limiting, and hidden-entry skipping
// - Extension-to-category classification
// - Size ceiling enforcement

package filesearch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxFileSize is the ceiling above which a file is counted but not indexed.
const maxFileSize = 10 << 20 // 10 MiB

// File categories, classified by extension.
const (
	CategoryDocument     = "document"
	CategoryImage        = "image"
	CategoryAudio        = "audio"
	CategoryVideo        = "video"
	CategoryCode         = "code"
	CategoryData         = "data"
	CategoryArchive      = "archive"
	CategoryExecutable   = "executable"
	CategoryPresentation = "presentation"
	CategorySpreadsheet  = "spreadsheet"
	CategoryOther        = "other"
)

var extensionCategories = map[string]string{
	".txt": CategoryDocument, ".md": CategoryDocument, ".doc": CategoryDocument,
	".docx": CategoryDocument, ".pdf": CategoryDocument, ".rtf": CategoryDocument,
	".odt": CategoryDocument,
	".jpg": CategoryImage, ".jpeg": CategoryImage, ".png": CategoryImage,
	".gif": CategoryImage, ".bmp": CategoryImage, ".svg": CategoryImage,
	".webp": CategoryImage, ".heic": CategoryImage,
	".mp3": CategoryAudio, ".wav": CategoryAudio, ".flac": CategoryAudio,
	".aac": CategoryAudio, ".ogg": CategoryAudio, ".m4a": CategoryAudio,
	".mp4": CategoryVideo, ".avi": CategoryVideo, ".mkv": CategoryVideo,
	".mov": CategoryVideo, ".wmv": CategoryVideo, ".webm": CategoryVideo,
	".go": CategoryCode, ".py": CategoryCode, ".js": CategoryCode,
	".ts": CategoryCode, ".c": CategoryCode, ".cpp": CategoryCode,
	".h": CategoryCode, ".java": CategoryCode, ".rb": CategoryCode,
	".rs": CategoryCode, ".sh": CategoryCode, ".html": CategoryCode,
	".css": CategoryCode,
	".csv": CategoryData, ".json": CategoryData, ".xml": CategoryData,
	".yaml": CategoryData, ".yml": CategoryData, ".sql": CategoryData,
	".db": CategoryData,
	".zip": CategoryArchive, ".tar": CategoryArchive, ".gz": CategoryArchive,
	".rar": CategoryArchive, ".7z": CategoryArchive, ".bz2": CategoryArchive,
	".exe": CategoryExecutable, ".bin": CategoryExecutable, ".app": CategoryExecutable,
	".deb": CategoryExecutable, ".rpm": CategoryExecutable,
	".ppt": CategoryPresentation, ".pptx": CategoryPresentation,
	".key": CategoryPresentation, ".odp": CategoryPresentation,
	".xls": CategorySpreadsheet, ".xlsx": CategorySpreadsheet,
	".ods": CategorySpreadsheet, ".numbers": CategorySpreadsheet,
}

// Categorize maps a file name to its category by extension.
func Categorize(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if category, ok := extensionCategories[ext]; ok {
		return category
	}
	return CategoryOther
}

// FileEntry is one indexed file.
type FileEntry struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	Created  time.Time `json:"created"`
}

// IndexStats aggregates one indexing run.
type IndexStats struct {
	TotalFiles     int           `json:"total_files"`
	IndexedFiles   int           `json:"indexed_files"`
	SkippedFiles   int           `json:"skipped_files"`
	TotalSizeBytes int64         `json:"total_size_bytes"`
	Duration       time.Duration `json:"duration"`
}

// DirectorySnapshot is the index of one directory tree, replaced wholesale
// on re-index.
type DirectorySnapshot struct {
	Path      string      `json:"path"`
	IndexedAt time.Time   `json:"indexed_at"`
	Files     []FileEntry `json:"files"`
	Stats     IndexStats  `json:"stats"`
}

// CountByCategory tallies the snapshot's files per category.
func (s *DirectorySnapshot) CountByCategory() map[string]int {
	counts := make(map[string]int)
	for _, f := range s.Files {
		counts[f.Category]++
	}
	return counts
}

// Indexer walks directory trees into snapshots.
type Indexer struct {
	logger *zap.Logger
}

// NewIndexer creates an indexer.
func NewIndexer(logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{logger: logger}
}

// Index walks root up to maxDepth levels below it, skipping hidden entries
// and counting oversized files as skipped. Fails if root is not a directory.
func (ix *Indexer) Index(root string, maxDepth int) (*DirectorySnapshot, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid directory path %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot index %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", abs)
	}

	start := time.Now()
	snapshot := &DirectorySnapshot{Path: abs, IndexedAt: start}

	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Unreadable entries are skipped, not fatal.
			snapshot.Stats.SkippedFiles++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == abs {
			return nil
		}

		name := d.Name()
		if strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if depthOf(abs, path) > maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if depthOf(abs, path) > maxDepth {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		snapshot.Stats.TotalFiles++
		fi, statErr := d.Info()
		if statErr != nil {
			snapshot.Stats.SkippedFiles++
			return nil
		}
		if fi.Size() > maxFileSize {
			snapshot.Stats.SkippedFiles++
			return nil
		}

		snapshot.Files = append(snapshot.Files, FileEntry{
			Path:     path,
			Name:     name,
			Category: Categorize(name),
			Size:     fi.Size(),
			Modified: fi.ModTime(),
			// Creation time is not portably available; mtime stands in.
			Created: fi.ModTime(),
		})
		snapshot.Stats.IndexedFiles++
		snapshot.Stats.TotalSizeBytes += fi.Size()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", abs, err)
	}

	snapshot.Stats.Duration = time.Since(start)
	ix.logger.Debug("indexed directory",
		zap.String("path", abs),
		zap.Int("indexed", snapshot.Stats.IndexedFiles),
		zap.Int("skipped", snapshot.Stats.SkippedFiles))
	return snapshot, nil
}

// depthOf counts path separators between root and path. Files directly in
// root are at depth 1.
func depthOf(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
