// Prose adapter - renders structured search results into the fixed text
// form the model consumes, and parses that form back.
//
// Search results stay structured end-to-end inside the core; this adapter
// exists only at the model-facing boundary, where responses are text. The
// parser tolerates missing matches and returns an empty list, never an error.
package filesearch

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// fileLinePattern is the fixed line format:
//
//	FILE: <name> | CATEGORY: <category> | SIZE: <bytes> | PATH: <path>
var fileLinePattern = regexp.MustCompile(`^FILE: (.+) \| CATEGORY: (\S+) \| SIZE: (\d+) \| PATH: (.+)$`)

// RenderResult renders a full search result, header included.
func RenderResult(result *SearchResult) string {
	if result == nil || len(result.Files) == 0 {
		return fmt.Sprintf("No files found matching %q.", queryOf(result))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d file(s) matching %q:\n", result.Total, result.Query)
	b.WriteString(RenderFiles(result.Files))
	return b.String()
}

// RenderFiles renders file entries, one fixed-pattern line each.
func RenderFiles(files []FileEntry) string {
	if len(files) == 0 {
		return "No files found."
	}
	lines := make([]string, 0, len(files))
	for _, f := range files {
		lines = append(lines, fmt.Sprintf("FILE: %s | CATEGORY: %s | SIZE: %d | PATH: %s",
			f.Name, f.Category, f.Size, f.Path))
	}
	return strings.Join(lines, "\n")
}

// ParseFiles recovers file entries from rendered text. Lines that do not
// match the pattern are ignored.
func ParseFiles(text string) []FileEntry {
	var files []FileEntry
	for _, line := range strings.Split(text, "\n") {
		matches := fileLinePattern.FindStringSubmatch(strings.TrimSpace(line))
		if matches == nil {
			continue
		}
		size, err := strconv.ParseInt(matches[3], 10, 64)
		if err != nil {
			continue
		}
		files = append(files, FileEntry{
			Name:     matches[1],
			Category: matches[2],
			Size:     size,
			Path:     matches[4],
		})
	}
	return files
}

func queryOf(result *SearchResult) string {
	if result == nil {
		return ""
	}
	return result.Query
}

// hasExtension reports whether name carries the extension, case-insensitive.
func hasExtension(name, ext string) bool {
	return strings.EqualFold(filepath.Ext(name), ext)
}
