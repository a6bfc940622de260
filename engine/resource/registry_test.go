package resource

import (
	"errors"
	"testing"
)

func TestRegistryAcquireRelease(t *testing.T) {
	r := NewRegistry()
	a := r.Acquire(KindTexture, "env")
	b := r.Acquire(KindTexture, "")
	c := r.Acquire(KindMaterial, "simple")

	if a == b || !a.Valid() || !b.Valid() {
		t.Fatalf("Acquire failed:\n%v %v", a, b)
	}
	if n := r.Live(KindTexture); n != 2 {
		t.Fatalf("Live failed:\nhave %d\nwant 2", n)
	}
	if n := r.Total(); n != 3 {
		t.Fatalf("Total failed:\nhave %d\nwant 3", n)
	}
	if err := r.Release(a); err != nil {
		t.Fatalf("Release failed:\n%v", err)
	}
	if r.Alive(a) {
		t.Fatal("Alive failed:\nreleased handle reported alive")
	}
	if err := r.Release(a); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("Release failed:\nhave %v\nwant %v", err, ErrStaleHandle)
	}

	leaks := r.Leaks()
	if len(leaks) != 2 || leaks[0] != "Texture#2" || leaks[1] != "Material#1 (simple)" {
		t.Fatalf("Leaks failed:\n%#v", leaks)
	}

	_ = r.Release(b)
	_ = r.Release(c)
	if n := r.Total(); n != 0 {
		t.Fatalf("Total failed:\nhave %d\nwant 0", n)
	}
}

func TestRegistryIDsNotReused(t *testing.T) {
	r := NewRegistry()
	a := r.Acquire(KindEntity, "")
	_ = r.Release(a)
	b := r.Acquire(KindEntity, "")
	if a == b {
		t.Fatalf("Acquire failed:\nid %d reused", a.ID)
	}
	if r.Alive(a) {
		t.Fatal("Alive failed:\nstale handle aliases a new one")
	}
}

func TestRegistryZeroHandle(t *testing.T) {
	r := NewRegistry()
	if r.Alive(Handle{}) {
		t.Fatal("Alive failed:\nzero handle reported alive")
	}
	if err := r.Release(Handle{}); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("Release failed:\n%v", err)
	}
}
