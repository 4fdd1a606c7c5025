package filesearch

import (
	"strings"
	"testing"
)

func sampleFiles() []FileEntry {
	return []FileEntry{
		{Name: "quarterly report.pdf", Category: CategoryDocument, Size: 2048, Path: "/home/user/Documents/quarterly report.pdf"},
		{Name: "track01.mp3", Category: CategoryAudio, Size: 4096, Path: "/home/user/Music/track01.mp3"},
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	rendered := RenderFiles(sampleFiles())
	parsed := ParseFiles(rendered)

	if len(parsed) != 2 {
		t.Fatalf("expected 2 parsed files, got %d", len(parsed))
	}
	for i, want := range sampleFiles() {
		got := parsed[i]
		if got.Name != want.Name || got.Category != want.Category ||
			got.Size != want.Size || got.Path != want.Path {
			t.Errorf("round trip mismatch at %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestRenderResultHeader(t *testing.T) {
	result := &SearchResult{Query: "report", Total: 2, Files: sampleFiles()}
	rendered := RenderResult(result)

	if !strings.HasPrefix(rendered, `Found 2 file(s) matching "report":`) {
		t.Errorf("unexpected header: %q", rendered)
	}
	if len(ParseFiles(rendered)) != 2 {
		t.Error("expected header line to be ignored by the parser")
	}
}

func TestRenderEmptyResult(t *testing.T) {
	rendered := RenderResult(&SearchResult{Query: "nothing"})
	if !strings.Contains(rendered, "No files found") {
		t.Errorf("expected no-match message, got %q", rendered)
	}
	if files := ParseFiles(rendered); len(files) != 0 {
		t.Errorf("expected empty parse, got %v", files)
	}
}

func TestParseTolerantOfNoise(t *testing.T) {
	text := strings.Join([]string{
		"The search found the following:",
		"FILE: a.txt | CATEGORY: document | SIZE: 10 | PATH: /x/a.txt",
		"some commentary in between",
		"FILE: broken line without the rest",
		"FILE: b.mp3 | CATEGORY: audio | SIZE: twenty | PATH: /x/b.mp3",
		"FILE: c.mp3 | CATEGORY: audio | SIZE: 30 | PATH: /x/c.mp3",
	}, "\n")

	files := ParseFiles(text)
	if len(files) != 2 {
		t.Fatalf("expected 2 well-formed lines parsed, got %d", len(files))
	}
	if files[0].Name != "a.txt" || files[1].Name != "c.mp3" {
		t.Errorf("unexpected parse: %+v", files)
	}
}

func TestParsePlainProseReturnsEmpty(t *testing.T) {
	if files := ParseFiles("I could not find anything relevant."); files != nil {
		t.Errorf("expected nil, got %v", files)
	}
}
