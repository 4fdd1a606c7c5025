package commands

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/richinex/merlin/reasoning"
)

func newTestExecutor() *Executor {
	return NewExecutor(NewVerifier(zap.NewNop()), zap.NewNop())
}

func approvedContext(t *testing.T) (ExecContext, string) {
	t.Helper()
	dir := t.TempDir()
	return ExecContext{ApprovedDirs: []string{dir}, WorkingDir: dir}, dir
}

func TestExecuteCapturesStdout(t *testing.T) {
	e := newTestExecutor()
	result := e.Execute(context.Background(), "echo hello", ExecContext{})

	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Output != "hello" {
		t.Errorf("expected output 'hello', got %q", result.Output)
	}
	if result.ReturnCode == nil || *result.ReturnCode != 0 {
		t.Errorf("expected return code 0, got %v", result.ReturnCode)
	}
}

func TestExecuteSilentSuccess(t *testing.T) {
	e := newTestExecutor()
	result := e.Execute(context.Background(), "cd /", ExecContext{})

	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Output != noOutputMarker {
		t.Errorf("expected no-output marker, got %q", result.Output)
	}
}

func TestExecuteStderrIsFailure(t *testing.T) {
	e := newTestExecutor()
	result := e.Execute(context.Background(), "ls /definitely/not/a/real/path", ExecContext{})

	if result.Success {
		t.Fatal("expected failure")
	}
	if !strings.HasPrefix(result.Output, "Error:") {
		t.Errorf("expected formatted error output, got %q", result.Output)
	}
	if result.Error == "" {
		t.Error("expected error field to be populated")
	}
}

func TestExecuteRejectionNeverRuns(t *testing.T) {
	e := newTestExecutor()
	result := e.Execute(context.Background(), "sudo ls", ExecContext{})

	if result.Success {
		t.Fatal("expected rejection")
	}
	if !strings.Contains(result.Error, "sudo") {
		t.Errorf("expected reason to mention sudo, got %q", result.Error)
	}
	if e.UnsafeAttempts() != 1 {
		t.Errorf("expected 1 unsafe attempt, got %d", e.UnsafeAttempts())
	}
	if len(e.History()) != 0 {
		t.Errorf("expected rejected command to stay out of history, got %v", e.History())
	}
}

func TestExecuteRecordsHistory(t *testing.T) {
	e := newTestExecutor()
	e.Execute(context.Background(), "echo one", ExecContext{})
	e.Execute(context.Background(), "echo two", ExecContext{})

	history := e.History()
	if len(history) != 2 || history[0] != "echo one" || history[1] != "echo two" {
		t.Errorf("unexpected history: %v", history)
	}
}

func TestExecuteTimeout(t *testing.T) {
	e := newTestExecutor().WithTimeout(100 * time.Millisecond)
	result := e.Execute(context.Background(), "sleep 2", ExecContext{})

	if result.Success {
		t.Fatal("expected timeout failure")
	}
	if !strings.Contains(result.Error, "timed out") {
		t.Errorf("expected timeout error, got %q", result.Error)
	}
}

func TestExecuteParentCancellationIsFailure(t *testing.T) {
	e := newTestExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := e.Execute(ctx, "echo hello", ExecContext{})

	if result.Success {
		t.Fatal("expected failure for canceled context")
	}
	if !strings.Contains(result.Error, "canceled") {
		t.Errorf("expected cancellation error, got %q", result.Error)
	}
	if result.Output == noOutputMarker {
		t.Errorf("cancellation must not read as silent success, got %q", result.Output)
	}
}

func TestExecuteBatchPreservesOrdering(t *testing.T) {
	e := newTestExecutor()
	ec, dir := approvedContext(t)

	src := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	target := filepath.Join(dir, "sorted")

	batch := e.ExecuteBatch(context.Background(), []string{
		"mkdir -p " + target,
		"mv " + src + " " + target,
	}, ec)

	if !batch.Success {
		t.Fatalf("expected batch success, got %+v", batch)
	}
	if len(batch.Results) != 2 {
		t.Fatalf("expected 2 sub-results, got %d", len(batch.Results))
	}
	for i, r := range batch.Results {
		if !r.Success {
			t.Errorf("expected sub-result %d to succeed, got %+v", i, r)
		}
	}
	if _, err := os.Stat(filepath.Join(target, "a.txt")); err != nil {
		t.Errorf("expected file moved into %s: %v", target, err)
	}
}

func TestExecuteBatchAggregatesFailure(t *testing.T) {
	e := newTestExecutor()
	batch := e.ExecuteBatch(context.Background(), []string{
		"echo fine",
		"sudo ls",
	}, ExecContext{})

	if batch.Success {
		t.Fatal("expected aggregate failure")
	}
	if len(batch.Results) != 2 {
		t.Fatalf("expected both sub-results, got %d", len(batch.Results))
	}
	if !batch.Results[0].Success || batch.Results[1].Success {
		t.Errorf("unexpected sub-result states: %+v", batch.Results)
	}
	if !strings.Contains(batch.Output, "$ echo fine") {
		t.Errorf("expected per-command headers in output, got %q", batch.Output)
	}
}

func TestExecuteBackground(t *testing.T) {
	e := newTestExecutor()
	result := e.ExecuteBackground(context.Background(), "sleep 1", ExecContext{})

	if !result.Success {
		t.Fatalf("expected launch success, got %+v", result)
	}
	if !strings.Contains(result.Output, "background") {
		t.Errorf("expected background launch message, got %q", result.Output)
	}
}

func TestGenerateCommand(t *testing.T) {
	tests := []struct {
		action string
		files  []string
		target string
		want   string
	}{
		{"move", []string{"/a/x.txt"}, "/b", "mkdir -p '/b' && mv '/a/x.txt' '/b'"},
		{"copy", []string{"/a/x.txt", "/a/y.txt"}, "/b", "mkdir -p '/b' && cp '/a/x.txt' '/a/y.txt' '/b'"},
		{"delete", []string{"/a/x.txt"}, "", "rm '/a/x.txt'"},
		{"shred", []string{"/a/x.txt"}, "/b", ""},
		{"move", nil, "/b", ""},
	}

	for _, tt := range tests {
		got := GenerateCommand(tt.action, tt.files, tt.target)
		if got != tt.want {
			t.Errorf("GenerateCommand(%q) = %q, want %q", tt.action, got, tt.want)
		}
	}
}

func stepWithArgs(t *testing.T, raw string) reasoning.Step {
	t.Helper()
	args, err := reasoning.ParseToolArgs(reasoning.ToolExecuteCommands, json.RawMessage(raw))
	if err != nil {
		t.Fatalf("parse args: %v", err)
	}
	return reasoning.Step{Tool: reasoning.ToolExecuteCommands, Args: args}
}

func TestExecuteStepPrefersExplicitCommands(t *testing.T) {
	e := newTestExecutor()
	step := stepWithArgs(t, `{"commands": ["echo from-step"]}`)

	batch := e.ExecuteStep(context.Background(), step, ExecContext{})
	if !batch.Success {
		t.Fatalf("expected success, got %+v", batch)
	}
	if !strings.Contains(batch.Output, "from-step") {
		t.Errorf("expected step output, got %q", batch.Output)
	}
}

func TestExecuteStepActionFallback(t *testing.T) {
	e := newTestExecutor()
	ec, dir := approvedContext(t)

	src := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	target := filepath.Join(dir, "pdfs")

	step := stepWithArgs(t, `{"action": "move", "files": ["`+src+`"], "target_dir": "`+target+`"}`)
	batch := e.ExecuteStep(context.Background(), step, ec)
	if !batch.Success {
		t.Fatalf("expected success, got %+v", batch)
	}
	if _, err := os.Stat(filepath.Join(target, "doc.pdf")); err != nil {
		t.Errorf("expected file moved: %v", err)
	}
}

func TestExecuteStepWithoutArguments(t *testing.T) {
	e := newTestExecutor()
	step := stepWithArgs(t, `{}`)

	batch := e.ExecuteStep(context.Background(), step, ExecContext{})
	if batch.Success {
		t.Fatal("expected failure for step with neither commands nor action")
	}
	if batch.Error == "" {
		t.Error("expected descriptive error")
	}
}

func TestExecuteStepWrongTool(t *testing.T) {
	e := newTestExecutor()
	step := reasoning.Step{Tool: reasoning.ToolSearchFiles}

	batch := e.ExecuteStep(context.Background(), step, ExecContext{})
	if batch.Success {
		t.Fatal("expected failure for mismatched tool")
	}
}
