package filesearch

import (
	"fmt"

	"github.com/richinex/merlin/reasoning"
)

// StepOutcome is the structured result of a search_files step, including
// any post-hoc filtering.
type StepOutcome struct {
	Result        *SearchResult `json:"result"`
	FilteredFiles []FileEntry   `json:"filtered_files,omitempty"`
	FilteredCount int           `json:"filtered_count,omitempty"`
	Filtered      bool          `json:"filtered"`
}

// files returns the filtered list when filters applied, the raw list otherwise.
func (o StepOutcome) files() []FileEntry {
	if o.Filtered {
		return o.FilteredFiles
	}
	if o.Result == nil {
		return nil
	}
	return o.Result.Files
}

// StepResult converts the outcome into a reasoning step result.
func (o StepOutcome) StepResult() reasoning.StepResult {
	files := o.files()
	return reasoning.StepResult{
		Success: true,
		Output:  RenderFiles(files),
		Payload: o,
	}
}

// ContextOutcome converts the outcome into the slice the reasoning context
// records.
func (o StepOutcome) ContextOutcome() reasoning.SearchOutcome {
	files := o.files()
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	categories, extensions := summarize(files)
	query := ""
	if o.Result != nil {
		query = o.Result.Query
	}
	return reasoning.SearchOutcome{
		Query:      query,
		Count:      len(files),
		Files:      names,
		Categories: categories,
		Extensions: extensions,
		Raw:        o,
	}
}

// ExecuteStep dispatches a search_files step by its search_type and applies
// the optional size/category/extension filters.
func (m *Manager) ExecuteStep(step reasoning.Step) (StepOutcome, error) {
	if step.Tool != reasoning.ToolSearchFiles {
		return StepOutcome{}, fmt.Errorf("step %d is bound to %q, not search_files", step.ID, step.Tool)
	}
	if step.ArgsErr != nil {
		return StepOutcome{}, step.ArgsErr
	}
	args := step.Args.Search
	if args == nil {
		return StepOutcome{}, fmt.Errorf("search_files step has no arguments")
	}

	var (
		files []FileEntry
		err   error
		query = args.Query
	)
	switch args.SearchType {
	case "type":
		files, err = m.SearchByType(args.FileType, args.Directory)
		query = "category:" + args.FileType
	case "extension":
		files, err = m.SearchByExtension(args.Extension, args.Directory)
		query = "extension:" + args.Extension
	case "name":
		files, err = m.SearchByName(args.NamePattern, args.Directory)
		query = "name:" + args.NamePattern
	case "content":
		files, err = m.SearchByContent(args.Query, args.Directory)
		query = "content:" + args.Query
	case "", "general":
		var result *SearchResult
		result, err = m.Search(args.Query, args.VectorStore, args.MaxResults)
		if err != nil {
			return StepOutcome{}, err
		}
		return applyFilters(result, args), nil
	default:
		return StepOutcome{}, fmt.Errorf("unknown search_type: %q", args.SearchType)
	}
	if err != nil {
		return StepOutcome{}, err
	}

	result := &SearchResult{Query: query, Files: files, Total: len(files)}
	result.Categories, result.Extensions = summarize(files)
	return applyFilters(result, args), nil
}

// applyFilters narrows result files by the optional filter arguments,
// attaching the filtered list only when a filter was supplied.
func applyFilters(result *SearchResult, args *reasoning.SearchFilesArgs) StepOutcome {
	outcome := StepOutcome{Result: result}

	hasFilter := args.MinSize > 0 || args.MaxSize > 0 ||
		(args.SearchType != "type" && args.FileType != "") ||
		(args.SearchType != "extension" && args.Extension != "")
	if !hasFilter {
		return outcome
	}

	filtered := make([]FileEntry, 0, len(result.Files))
	for _, f := range result.Files {
		if args.MinSize > 0 && f.Size < args.MinSize {
			continue
		}
		if args.MaxSize > 0 && f.Size > args.MaxSize {
			continue
		}
		if args.SearchType != "type" && args.FileType != "" && f.Category != args.FileType {
			continue
		}
		if args.SearchType != "extension" && args.Extension != "" {
			ext := args.Extension
			if ext[0] != '.' {
				ext = "." + ext
			}
			if !hasExtension(f.Name, ext) {
				continue
			}
		}
		filtered = append(filtered, f)
	}
	outcome.Filtered = true
	outcome.FilteredFiles = filtered
	outcome.FilteredCount = len(filtered)
	return outcome
}
