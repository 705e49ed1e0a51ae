package state

import "testing"

const awaiting State = "AWAITING_CONTACT"

func TestStateLifecycle(t *testing.T) {
	m := NewMemoryManager()

	if m.HasState(1) {
		t.Fatal("fresh user should have no state")
	}
	if got := m.GetState(1); got != StateIdle {
		t.Fatalf("GetState = %q, expected idle", got)
	}

	m.SetState(1, awaiting)
	if !m.HasState(1) {
		t.Fatal("HasState should report true after SetState")
	}
	if !m.InProgress(1) {
		t.Fatal("InProgress should report true after SetState")
	}
	if got := m.GetState(1); got != awaiting {
		t.Fatalf("GetState = %q", got)
	}

	m.ClearState(1)
	if m.HasState(1) {
		t.Fatal("HasState should report false after ClearState")
	}
}

func TestStatesIsolatedPerUser(t *testing.T) {
	m := NewMemoryManager()
	m.SetState(1, awaiting)

	if m.HasState(2) {
		t.Fatal("state leaked to another user")
	}
	if got := m.GetState(2); got != StateIdle {
		t.Fatalf("GetState(2) = %q", got)
	}
}

func TestTempDataSurvivesStateClear(t *testing.T) {
	m := NewMemoryManager()
	m.SetTemp(1, "k", "v")
	m.SetState(1, awaiting)
	m.ClearState(1)

	val, ok := m.GetTemp(1, "k")
	if !ok || val != "v" {
		t.Fatalf("temp data lost: %v ok=%v", val, ok)
	}

	m.ClearTemp(1, "k")
	if _, ok := m.GetTemp(1, "k"); ok {
		t.Fatal("ClearTemp did not remove the key")
	}
}

func TestClearDropsSession(t *testing.T) {
	m := NewMemoryManager()
	m.SetState(1, awaiting)
	m.SetTemp(1, "k", "v")

	m.Clear(1)
	if m.HasState(1) {
		t.Fatal("Clear should drop the state")
	}
	if _, ok := m.GetTemp(1, "k"); ok {
		t.Fatal("Clear should drop temp data")
	}
}
