// Request routing - the single source of truth for simple-vs-complex.
//
// Information Hiding:
// - Indicator and file-word lists
// - Tokenization and scoring

package orchestrator

import (
	"strings"
)

// Route is the outcome of the routing decision.
type Route int

const (
	// RouteSingleShot answers the request with one model call plus at most
	// one round of tool calling.
	RouteSingleShot Route = iota
	// RouteMultiStep plans and drives a reasoning chain.
	RouteMultiStep
)

// String returns the route name for logging.
func (r Route) String() string {
	if r == RouteMultiStep {
		return "multi_step"
	}
	return "single_shot"
}

// defaultTaskIndicators are words suggesting the request is a task to carry
// out rather than a question to answer.
var defaultTaskIndicators = []string{
	"find", "search", "organize", "move", "copy", "sort",
	"create", "analyze", "compare", "extract", "convert", "transform",
}

// defaultFileWords are words suggesting the task operates on files.
var defaultFileWords = []string{
	"files", "documents", "music", "photos", "images",
	"pdf", "mp3", "videos",
}

// Router scores user input against configurable word lists. All routing in
// the process goes through one Router instance.
type Router struct {
	taskIndicators []string
	fileWords      []string
	threshold      int
}

// NewRouter creates a router with the default word lists and a threshold of
// one, meaning any task indicator routes to multi-step.
func NewRouter() *Router {
	return &Router{
		taskIndicators: defaultTaskIndicators,
		fileWords:      defaultFileWords,
		threshold:      1,
	}
}

// WithTaskIndicators replaces the task-indicator list.
func (r *Router) WithTaskIndicators(words []string) *Router {
	r.taskIndicators = words
	return r
}

// WithFileWords replaces the file-word list.
func (r *Router) WithFileWords(words []string) *Router {
	r.fileWords = words
	return r
}

// WithThreshold sets the minimum combined score for multi-step routing.
func (r *Router) WithThreshold(threshold int) *Router {
	if threshold < 1 {
		threshold = 1
	}
	r.threshold = threshold
	return r
}

// Route decides the path for a request. classifierHint is an external
// classification's verdict that the request requires multiple steps; when
// set it forces the multi-step route regardless of the word score.
func (r *Router) Route(input string, classifierHint bool) Route {
	if classifierHint {
		return RouteMultiStep
	}

	tokens := tokenize(input)
	taskScore := countMatches(tokens, r.taskIndicators)
	if taskScore == 0 {
		return RouteSingleShot
	}
	if taskScore+countMatches(tokens, r.fileWords) >= r.threshold {
		return RouteMultiStep
	}
	return RouteSingleShot
}

// tokenize lowercases the input and splits it on non-letter boundaries.
func tokenize(input string) []string {
	return strings.FieldsFunc(strings.ToLower(input), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}

func countMatches(tokens, words []string) int {
	count := 0
	for _, tok := range tokens {
		for _, w := range words {
			if tok == w {
				count++
				break
			}
		}
	}
	return count
}
