package task

import (
	"testing"
)

func TestNewDefaults(t *testing.T) {
	tk := New("launch_app", map[string]any{"app_name": "maps"}, "Opening maps")

	if tk.ID == "" {
		t.Error("expected a generated id")
	}
	if tk.Status != StatusPending {
		t.Errorf("expected pending, got %s", tk.Status)
	}
	if !tk.RequiresApproval {
		t.Error("expected approval to be required by default")
	}
	if tk.ApprovalStatus != ApprovalPending {
		t.Errorf("expected approval pending, got %s", tk.ApprovalStatus)
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	tk := New("a", nil, "step")

	if err := tk.Approve(); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if err := tk.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := tk.Complete(); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if tk.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", tk.Status)
	}
}

func TestApprovalDecidedOnce(t *testing.T) {
	tk := New("a", nil, "step")
	if err := tk.Approve(); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if err := tk.Approve(); err == nil {
		t.Error("expected error on double approve")
	}
	if err := tk.Reject("no"); err == nil {
		t.Error("expected error rejecting an approved task")
	}
}

func TestRejectFailsTask(t *testing.T) {
	tk := New("a", nil, "step")
	if err := tk.Reject("User rejected this task"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if tk.Status != StatusFailed {
		t.Errorf("expected failed, got %s", tk.Status)
	}
	if tk.ApprovalStatus != ApprovalRejected {
		t.Errorf("expected rejected, got %s", tk.ApprovalStatus)
	}
	if tk.Error != "User rejected this task" {
		t.Errorf("unexpected error: %q", tk.Error)
	}
}

func TestNoBackwardTransitions(t *testing.T) {
	tk := New("a", nil, "step")
	if err := tk.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := tk.Start(); err == nil {
		t.Error("expected error starting an in_progress task")
	}
	if err := tk.Complete(); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if err := tk.Fail("late failure"); err == nil {
		t.Error("expected error failing a completed task")
	}
	if err := tk.Complete(); err == nil {
		t.Error("expected error completing twice")
	}
}

func TestCloneIsolatesParams(t *testing.T) {
	tk := New("a", map[string]any{"k": "v"}, "step")
	c := tk.Clone()
	c.Params["k"] = "mutated"
	if tk.Params["k"] != "v" {
		t.Error("clone shares the params map with the original")
	}
}
