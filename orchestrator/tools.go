// Tool schemas offered to the language model.
//
// Information Hiding:
// - JSON Schema shapes for each callable tool
// - Which tools are offered on which path

package orchestrator

import (
	"github.com/richinex/merlin/llm"
)

// executeCommandsTool describes the command-execution tool.
func executeCommandsTool() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "execute_commands",
		Description: "Execute shell commands sequentially on the user's machine. Commands are safety-verified before running. Set background to launch a single long-running command detached.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"commands": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Shell command lines to run, in order",
				},
				"background": map[string]interface{}{
					"type":        "boolean",
					"description": "Launch the single command detached without waiting",
				},
			},
			"required": []string{"commands"},
		},
	}
}

// searchFilesTool describes the file-search tool.
func searchFilesTool() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "search_files",
		Description: "Search the indexed directories for files by name or category.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search terms matched against file names",
				},
				"vector_store": map[string]interface{}{
					"type":        "string",
					"description": "Named store to search (defaults to \"default\")",
				},
			},
			"required": []string{"query"},
		},
	}
}

// planReasoningTool describes the planning-only tool used when decomposing a
// request into a chain of steps.
func planReasoningTool() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "plan_reasoning",
		Description: "Decompose the request into an ordered list of steps. Each step names an optional tool (execute_commands, search_files, or synthesize) with its arguments.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"steps": map[string]interface{}{
					"type":        "array",
					"description": "Ordered plan steps",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"description": map[string]interface{}{
								"type":        "string",
								"description": "What this step accomplishes",
							},
							"tool_name": map[string]interface{}{
								"type":        "string",
								"description": "execute_commands, search_files, or synthesize",
							},
							"tool_args": map[string]interface{}{
								"type":        "object",
								"description": "Arguments for the named tool",
							},
						},
					},
				},
			},
			"required": []string{"steps"},
		},
	}
}

// assistantTools returns the tools offered on the single-shot path.
// plan_reasoning is included so the model can label a request as requiring
// multiple steps; such a call escalates the turn to the multi-step path.
func assistantTools() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		executeCommandsTool(),
		searchFilesTool(),
		planReasoningTool(),
	}
}
