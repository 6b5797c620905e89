package id

import (
	"strings"

	"github.com/google/uuid"
)

// Generator creates opaque identifiers.
type Generator interface {
	New() string
}

type RandomUUID struct{}

func (RandomUUID) New() string {
	return uuid.NewString()
}

var namespace = uuid.MustParse("6f0c1d7e-3b5a-4c58-9d7e-1f2a3b4c5d6e")

// Derive returns a stable identifier for the given parts, so the same input
// always maps to the same id.
func Derive(parts ...string) string {
	return uuid.NewSHA1(namespace, []byte(strings.Join(parts, "\x00"))).String()
}
