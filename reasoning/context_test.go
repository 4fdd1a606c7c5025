package reasoning

import (
	"testing"

	"go.uber.org/zap"
)

func TestGetCountsAccesses(t *testing.T) {
	ctx := NewContext("chain-1", []string{"/home/user"}, "/home/user")

	for i := 1; i <= 3; i++ {
		v, ok := ctx.Get("current_directory")
		if !ok {
			t.Fatal("expected current_directory to be seeded")
		}
		if v != "/home/user" {
			t.Errorf("expected /home/user, got %v", v)
		}
		if got := ctx.AccessCount("current_directory"); got != i {
			t.Errorf("expected access count %d, got %d", i, got)
		}
	}
}

func TestUpdateAbsentKey(t *testing.T) {
	ctx := NewContext("chain-1", nil, "/")

	if ctx.Update("missing", "value", SourceSystem) {
		t.Error("expected update of absent key to return false")
	}
	if _, ok := ctx.Get("missing"); ok {
		t.Error("expected no entry created by failed update")
	}
}

func TestSetOverwritesAndDeleteReports(t *testing.T) {
	ctx := NewContext("chain-1", nil, "/")

	ctx.Set("k", "v1", SourceSystem, nil)
	ctx.Set("k", "v2", SourceReasoning, nil)
	if v, _ := ctx.Get("k"); v != "v2" {
		t.Errorf("expected overwrite to v2, got %v", v)
	}
	if !ctx.Delete("k") {
		t.Error("expected delete to report true")
	}
	if ctx.Delete("k") {
		t.Error("expected second delete to report false")
	}
}

func TestGetBySource(t *testing.T) {
	ctx := NewContext("chain-1", nil, "/")
	ctx.UpdateFromCommandResult(CommandOutcome{Command: "ls", Success: true, Output: "a.txt"})

	system := ctx.GetBySource(SourceSystem)
	if _, ok := system["approved_directories"]; !ok {
		t.Error("expected approved_directories under system source")
	}
	if _, ok := system["last_command"]; ok {
		t.Error("did not expect command entries under system source")
	}

	cmds := ctx.GetBySource(SourceCommandExecution)
	if _, ok := cmds["last_command"]; !ok {
		t.Error("expected last_command under command_execution source")
	}
}

func TestCommandResultsUseSequencedKeys(t *testing.T) {
	ctx := NewContext("chain-1", nil, "/")

	ctx.UpdateFromCommandResult(CommandOutcome{Command: "ls", Success: true, Output: "one"})
	ctx.UpdateFromCommandResult(CommandOutcome{Command: "pwd", Success: true, Output: "two"})

	if _, ok := ctx.Get("command_result_0"); !ok {
		t.Error("expected command_result_0")
	}
	if _, ok := ctx.Get("command_result_1"); !ok {
		t.Error("expected command_result_1")
	}
	if v, _ := ctx.Get("last_command"); v != "pwd" {
		t.Errorf("expected last_command pwd, got %v", v)
	}
	if v, _ := ctx.Get("last_command_success"); v != true {
		t.Errorf("expected last_command_success true, got %v", v)
	}

	history, _ := ctx.Get("command_history")
	list, ok := history.([]CommandOutcome)
	if !ok || len(list) != 2 {
		t.Fatalf("expected history of 2 outcomes, got %v", history)
	}
	if list[0].Command != "ls" || list[1].Command != "pwd" {
		t.Errorf("expected ordered history, got %v", list)
	}
}

func TestMkdirSurfacesCreatedDirectory(t *testing.T) {
	ctx := NewContext("chain-1", nil, "/")

	ctx.UpdateFromCommandResult(CommandOutcome{
		Command: "mkdir -p /home/user/Sorted && mv a.txt /home/user/Sorted",
		Success: true,
		Output:  "(no output)",
	})

	v, ok := ctx.Get("last_created_directory")
	if !ok {
		t.Fatal("expected last_created_directory")
	}
	if v != "/home/user/Sorted" {
		t.Errorf("expected /home/user/Sorted, got %v", v)
	}
}

func TestSearchResultUpdates(t *testing.T) {
	ctx := NewContext("chain-1", nil, "/")

	ctx.UpdateFromSearchResult(SearchOutcome{
		Query:      "report",
		Count:      2,
		Files:      []string{"q1.pdf", "q2.pdf"},
		Categories: map[string]int{"document": 2},
	})

	if v, _ := ctx.Get("last_search_count"); v != 2 {
		t.Errorf("expected count 2, got %v", v)
	}
	if _, ok := ctx.Get("search_result_0"); !ok {
		t.Error("expected search_result_0")
	}
	if _, ok := ctx.Get("search_categories"); !ok {
		t.Error("expected search_categories")
	}
}

func TestStepContextExposesPriorResults(t *testing.T) {
	ctx := NewContext("chain-1", nil, "/")

	ctx.RecordStepResult(0, StepResult{Success: true, Output: "found 3 files"})
	ctx.RecordStepResult(1, StepResult{Success: false, Error: "rejected"})

	snapshot := ctx.StepContext(2)
	r0, ok := snapshot["previous_step_0_result"].(StepResult)
	if !ok {
		t.Fatal("expected previous_step_0_result")
	}
	if r0.Output != "found 3 files" {
		t.Errorf("unexpected step 0 result: %+v", r0)
	}
	if _, ok := snapshot["previous_step_1_result"]; !ok {
		t.Error("expected previous_step_1_result")
	}
	if _, ok := snapshot["previous_step_2_result"]; ok {
		t.Error("did not expect the current step's own result")
	}
	if _, ok := snapshot["approved_directories"]; !ok {
		t.Error("expected base context in step snapshot")
	}
}

func TestManagerLifecycle(t *testing.T) {
	mgr := NewContextManager(zap.NewNop())

	if _, err := mgr.GetContext("nope"); err == nil {
		t.Error("expected not-found error")
	}

	mgr.CreateContext("c1", []string{"/approved"}, "/")
	ctx, err := mgr.GetContext("c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.ChainID() != "c1" {
		t.Errorf("expected chain id c1, got %s", ctx.ChainID())
	}

	mgr.Remove("c1")
	if mgr.Count() != 0 {
		t.Errorf("expected empty manager, got %d", mgr.Count())
	}
}
