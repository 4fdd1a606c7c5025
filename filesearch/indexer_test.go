package filesearch

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestIndexCountsAndCategories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "report.pdf"), 10)
	writeFile(t, filepath.Join(dir, "song.mp3"), 20)
	writeFile(t, filepath.Join(dir, "notes", "todo.txt"), 5)
	writeFile(t, filepath.Join(dir, ".hidden.txt"), 5)
	writeFile(t, filepath.Join(dir, ".git", "config"), 5)

	ix := NewIndexer(zap.NewNop())
	snapshot, err := ix.Index(dir, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snapshot.Stats.IndexedFiles != 3 {
		t.Errorf("expected 3 indexed files, got %d", snapshot.Stats.IndexedFiles)
	}
	if snapshot.Stats.TotalSizeBytes != 35 {
		t.Errorf("expected 35 total bytes, got %d", snapshot.Stats.TotalSizeBytes)
	}

	counts := snapshot.CountByCategory()
	if counts[CategoryDocument] != 2 {
		t.Errorf("expected 2 documents, got %d", counts[CategoryDocument])
	}
	if counts[CategoryAudio] != 1 {
		t.Errorf("expected 1 audio file, got %d", counts[CategoryAudio])
	}
}

func TestIndexRespectsMaxDepth(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "top.txt"), 1)
	writeFile(t, filepath.Join(dir, "one", "mid.txt"), 1)
	writeFile(t, filepath.Join(dir, "one", "two", "deep.txt"), 1)

	ix := NewIndexer(zap.NewNop())
	snapshot, err := ix.Index(dir, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snapshot.Stats.IndexedFiles != 2 {
		t.Errorf("expected 2 files within depth 2, got %d", snapshot.Stats.IndexedFiles)
	}
	for _, f := range snapshot.Files {
		if f.Name == "deep.txt" {
			t.Error("deep.txt is below max depth and must not be indexed")
		}
	}
}

func TestIndexSkipsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ok.txt"), 100)
	writeFile(t, filepath.Join(dir, "huge.bin"), maxFileSize+1)

	ix := NewIndexer(zap.NewNop())
	snapshot, err := ix.Index(dir, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snapshot.Stats.IndexedFiles != 1 {
		t.Errorf("expected 1 indexed file, got %d", snapshot.Stats.IndexedFiles)
	}
	if snapshot.Stats.SkippedFiles != 1 {
		t.Errorf("expected 1 skipped file, got %d", snapshot.Stats.SkippedFiles)
	}
	if snapshot.Stats.TotalFiles != 2 {
		t.Errorf("expected 2 total files, got %d", snapshot.Stats.TotalFiles)
	}
}

func TestIndexRejectsNonDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	writeFile(t, file, 1)

	ix := NewIndexer(zap.NewNop())
	if _, err := ix.Index(file, 1); err == nil {
		t.Error("expected error indexing a regular file")
	}
	if _, err := ix.Index(filepath.Join(dir, "missing"), 1); err == nil {
		t.Error("expected error indexing a missing path")
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"a.PDF", CategoryDocument},
		{"b.xlsx", CategorySpreadsheet},
		{"c.pptx", CategoryPresentation},
		{"d.tar", CategoryArchive},
		{"e.go", CategoryCode},
		{"f.json", CategoryData},
		{"noext", CategoryOther},
	}
	for _, tt := range tests {
		if got := Categorize(tt.name); got != tt.want {
			t.Errorf("Categorize(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
