package helpers

import "testing"

func TestPtrOf(t *testing.T) {
	t.Parallel()

	if p := PtrOf(1000); p == nil || *p != 1000 {
		t.Errorf("PtrOf(1000) = %v", p)
	}
	if p := PtrOf(0.7); *p != 0.7 {
		t.Errorf("PtrOf(0.7) = %v", *p)
	}

	a, b := PtrOf("x"), PtrOf("x")
	if a == b {
		t.Error("PtrOf should return distinct pointers")
	}
}

func TestDeref(t *testing.T) {
	t.Parallel()

	if got := Deref(PtrOf(3), 5); got != 3 {
		t.Errorf("Deref(&3, 5) = %d, want 3", got)
	}
	var nilPtr *int
	if got := Deref(nilPtr, 5); got != 5 {
		t.Errorf("Deref(nil, 5) = %d, want 5", got)
	}
}
