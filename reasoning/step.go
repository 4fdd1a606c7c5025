// Reasoning steps and their tool bindings.
//
// Information Hiding:
// - Tool argument schemas per tool name
// - Argument validation at plan receipt
// - One-shot result assignment

package reasoning

import (
	"encoding/json"
	"fmt"
)

// ToolName identifies the capability a step invokes.
type ToolName string

const (
	// ToolNone marks a step with no tool binding; it is answered directly
	// by the model, same as ToolSynthesize.
	ToolNone            ToolName = ""
	ToolSynthesize      ToolName = "synthesize"
	ToolExecuteCommands ToolName = "execute_commands"
	ToolSearchFiles     ToolName = "search_files"
)

// Valid reports whether the tool name is in the closed set.
func (t ToolName) Valid() bool {
	switch t {
	case ToolNone, ToolSynthesize, ToolExecuteCommands, ToolSearchFiles:
		return true
	default:
		return false
	}
}

// ExecuteCommandsArgs are the arguments for the execute_commands tool.
// Either Commands or the Action/Files/TargetDir triple must be present.
type ExecuteCommandsArgs struct {
	Commands   []string `json:"commands,omitempty"`
	Background bool     `json:"background,omitempty"`
	Action     string   `json:"action,omitempty"`
	Files      []string `json:"files,omitempty"`
	TargetDir  string   `json:"target_dir,omitempty"`
}

// SearchFilesArgs are the arguments for the search_files tool.
type SearchFilesArgs struct {
	Query       string `json:"query,omitempty"`
	VectorStore string `json:"vector_store,omitempty"`
	SearchType  string `json:"search_type,omitempty"`
	FileType    string `json:"file_type,omitempty"`
	Extension   string `json:"extension,omitempty"`
	NamePattern string `json:"name_pattern,omitempty"`
	Directory   string `json:"directory,omitempty"`
	MinSize     int64  `json:"min_size,omitempty"`
	MaxSize     int64  `json:"max_size,omitempty"`
	MaxResults  int    `json:"max_results,omitempty"`
}

// ToolArgs is a closed union of per-tool argument shapes. Exactly one
// variant is set for tool-bound steps; both are nil for synthesize steps.
type ToolArgs struct {
	Execute *ExecuteCommandsArgs
	Search  *SearchFilesArgs
}

// ParseToolArgs decodes raw arguments against the schema for the named tool.
// An unrecognized tool name is an error; callers decide whether that aborts
// the plan or marks the step as failed.
func ParseToolArgs(tool ToolName, raw json.RawMessage) (ToolArgs, error) {
	switch tool {
	case ToolNone, ToolSynthesize:
		return ToolArgs{}, nil
	case ToolExecuteCommands:
		var args ExecuteCommandsArgs
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return ToolArgs{}, fmt.Errorf("invalid execute_commands arguments: %w", err)
			}
		}
		return ToolArgs{Execute: &args}, nil
	case ToolSearchFiles:
		var args SearchFilesArgs
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return ToolArgs{}, fmt.Errorf("invalid search_files arguments: %w", err)
			}
		}
		return ToolArgs{Search: &args}, nil
	default:
		return ToolArgs{}, fmt.Errorf("unknown tool: %q", tool)
	}
}

// StepResult is the recorded outcome of one step.
type StepResult struct {
	Success bool        `json:"success"`
	Output  string      `json:"output"`
	Error   string      `json:"error,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// Step is one unit of work in a chain. Identity is assigned at plan time and
// is unique within the chain. Result and Completed transition exactly once.
type Step struct {
	ID          int         `json:"step_id"`
	Description string      `json:"description"`
	Tool        ToolName    `json:"tool_name"`
	Args        ToolArgs    `json:"-"`
	ArgsErr     error       `json:"-"`
	Result      *StepResult `json:"result,omitempty"`
	Completed   bool        `json:"is_completed"`
}

// complete assigns the result and marks the step done. Idempotence is not
// offered; the chain cursor guarantees each step is completed once.
func (s *Step) complete(result StepResult) {
	r := result
	s.Result = &r
	s.Completed = true
}

// PlannedStep is the planner's description of a step before the engine
// assigns identity and validates arguments.
type PlannedStep struct {
	Description string          `json:"description"`
	ToolName    string          `json:"tool_name,omitempty"`
	ToolArgs    json.RawMessage `json:"tool_args,omitempty"`
}
