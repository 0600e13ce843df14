package lifecycle

import "testing"

func TestDrainingToggle(t *testing.T) {
	var l Lifecycle
	if l.IsDraining() {
		t.Fatal("new lifecycle reports draining")
	}
	l.SetDraining(true)
	if !l.IsDraining() {
		t.Fatal("SetDraining(true) not observed")
	}
	l.SetDraining(false)
	if l.IsDraining() {
		t.Fatal("SetDraining(false) not observed")
	}
}

func TestNilLifecycleIsSafe(t *testing.T) {
	var l *Lifecycle
	l.SetDraining(true)
	if l.IsDraining() {
		t.Fatal("nil lifecycle reports draining")
	}
}
