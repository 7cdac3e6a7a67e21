package common

import "testing"

type pauseMap map[string]bool

func (p pauseMap) IsPaused(module string) bool { return p[module] }

func TestGuard(t *testing.T) {
	pauses := pauseMap{"sale": true}
	if err := Guard(pauses, "sale"); err != ErrModulePaused {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(pauses, "merit"); err != nil {
		t.Fatalf("unpaused module rejected: %v", err)
	}
	if err := Guard(nil, "sale"); err != nil {
		t.Fatalf("nil view rejected: %v", err)
	}
	if err := Guard(pauses, ""); err != nil {
		t.Fatalf("empty module rejected: %v", err)
	}
}

func TestCallGuard(t *testing.T) {
	var guard CallGuard
	if err := guard.Enter(); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if err := guard.Enter(); err != ErrReentrantCall {
		t.Fatalf("expected ErrReentrantCall, got %v", err)
	}
	guard.Exit()
	if err := guard.Enter(); err != nil {
		t.Fatalf("enter after exit: %v", err)
	}
}
