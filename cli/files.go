// File-index subcommands: index, list, remove, search, status, clear.
//
// Information Hiding:
// - Search-manager construction per invocation
// - Confirmation prompt handling for destructive operations
// - Result rendering

package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/richinex/merlin/filesearch"
)

// FileCommandResult is the outcome of one file subcommand.
type FileCommandResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func okResult(format string, args ...interface{}) FileCommandResult {
	return FileCommandResult{Success: true, Message: fmt.Sprintf(format, args...)}
}

func failedResult(format string, args ...interface{}) FileCommandResult {
	return FileCommandResult{Success: false, Message: fmt.Sprintf(format, args...)}
}

// newSearchManager opens the persisted file-search state.
func newSearchManager(opts Options) (*filesearch.Manager, error) {
	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return nil, err
	}
	configDir, err := configDirPath()
	if err != nil {
		return nil, err
	}
	return filesearch.NewManager(configDir, logger)
}

// printResult reports a subcommand outcome and returns an error for
// failed runs so the process exits non-zero.
func printResult(result FileCommandResult) error {
	if result.Success {
		fmt.Println(result.Message)
		return nil
	}
	return fmt.Errorf("%s", result.Message)
}

// IndexFiles indexes a directory into the named vector store.
func IndexFiles(dir, storeName string, maxDepth int, opts Options) error {
	m, err := newSearchManager(opts)
	if err != nil {
		return err
	}
	return printResult(indexFiles(m, dir, storeName, maxDepth))
}

func indexFiles(m *filesearch.Manager, dir, storeName string, maxDepth int) FileCommandResult {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return failedResult("invalid directory %q: %v", dir, err)
	}

	snapshot, err := m.IndexDirectory(abs, storeName, maxDepth)
	if err != nil {
		return failedResult("indexing failed: %v", err)
	}
	return okResult("Indexed %s: %d file(s), %d skipped, %s",
		abs, snapshot.Stats.IndexedFiles, snapshot.Stats.SkippedFiles,
		snapshot.Stats.Duration.Round(time.Millisecond))
}

// ListIndexed lists indexed directories, stores, or both.
func ListIndexed(kind string, opts Options) error {
	m, err := newSearchManager(opts)
	if err != nil {
		return err
	}
	return printResult(listIndexed(m, kind))
}

func listIndexed(m *filesearch.Manager, kind string) FileCommandResult {
	var b strings.Builder
	switch kind {
	case "dirs":
		renderDirs(&b, m)
	case "stores":
		renderStores(&b, m)
	case "all", "":
		renderStores(&b, m)
		b.WriteString("\n")
		renderDirs(&b, m)
	default:
		return failedResult("unknown list type %q (use dirs, stores, or all)", kind)
	}
	return okResult("%s", strings.TrimRight(b.String(), "\n"))
}

func renderDirs(b *strings.Builder, m *filesearch.Manager) {
	dirs := m.IndexedDirectories()
	fmt.Fprintf(b, "Indexed directories (%d):\n", len(dirs))
	for _, dir := range dirs {
		fmt.Fprintf(b, "  %s\n", dir)
	}
}

func renderStores(b *strings.Builder, m *filesearch.Manager) {
	stores := m.Stores()
	fmt.Fprintf(b, "Vector stores (%d):\n", len(stores))
	for _, store := range stores {
		fmt.Fprintf(b, "  %s: %d file(s) in %d directory(ies)\n",
			store.Name, store.FileCount, len(store.Directories))
	}
}

// RemoveIndexed drops a directory from the index.
func RemoveIndexed(dir string, opts Options) error {
	m, err := newSearchManager(opts)
	if err != nil {
		return err
	}
	return printResult(removeIndexed(m, dir))
}

func removeIndexed(m *filesearch.Manager, dir string) FileCommandResult {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return failedResult("invalid directory %q: %v", dir, err)
	}
	if err := m.RemoveDirectory(abs); err != nil {
		return failedResult("remove failed: %v", err)
	}
	return okResult("Removed %s from the index", abs)
}

// SearchIndex searches the named vector store.
func SearchIndex(query, storeName string, maxResults int, opts Options) error {
	m, err := newSearchManager(opts)
	if err != nil {
		return err
	}
	return printResult(searchIndex(m, query, storeName, maxResults))
}

func searchIndex(m *filesearch.Manager, query, storeName string, maxResults int) FileCommandResult {
	result, err := m.Search(query, storeName, maxResults)
	if err != nil {
		return failedResult("search failed: %v", err)
	}
	return okResult("%s", filesearch.RenderResult(result))
}

// IndexStatus summarizes the index state.
func IndexStatus(opts Options) error {
	m, err := newSearchManager(opts)
	if err != nil {
		return err
	}
	return printResult(indexStatus(m))
}

func indexStatus(m *filesearch.Manager) FileCommandResult {
	stores := m.Stores()
	dirs := m.IndexedDirectories()

	total := 0
	for _, store := range stores {
		total += store.FileCount
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Stores: %d\nIndexed directories: %d\nIndexed files: %d",
		len(stores), len(dirs), total)
	return okResult("%s", b.String())
}

// ClearIndex wipes all stores and snapshots. Without force it asks for
// confirmation on the given reader.
func ClearIndex(force bool, opts Options) error {
	m, err := newSearchManager(opts)
	if err != nil {
		return err
	}
	result := clearIndex(m, force, os.Stdin)
	if !result.Success {
		// An aborted clear is not a process failure.
		fmt.Println(result.Message)
		return nil
	}
	return printResult(result)
}

func clearIndex(m *filesearch.Manager, force bool, in io.Reader) FileCommandResult {
	if !force {
		fmt.Print("This removes all indexed data. Proceed? [y/N] ")
		reader := bufio.NewReader(in)
		answer, _ := reader.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			return failedResult("Aborted")
		}
	}
	m.Clear()
	return okResult("Cleared all indexed data")
}
