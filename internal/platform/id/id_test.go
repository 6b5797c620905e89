package id_test

import (
	"testing"

	"github.com/google/uuid"

	"focustrail/internal/platform/id"
)

func TestDeriveIsStableAndDistinct(t *testing.T) {
	t.Parallel()
	a := id.Derive("sess-1", "1000")
	b := id.Derive("sess-1", "1000")
	c := id.Derive("sess-1", "2000")
	if a != b {
		t.Fatalf("derive must be stable, got %s vs %s", a, b)
	}
	if a == c {
		t.Fatalf("derive must differ for different parts")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("derived id is not a uuid: %v", err)
	}
}

func TestRandomUUIDIsUnique(t *testing.T) {
	t.Parallel()
	gen := id.RandomUUID{}
	if gen.New() == gen.New() {
		t.Fatalf("expected distinct ids")
	}
}
