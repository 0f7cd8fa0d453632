package generator

import (
	"github.com/google/uuid"
)

// Generator is an interface that defines a method to generate a new value of type T.
// This can be used to generate unique identifiers, lazily iterate, etc.
type Generator[T any] interface {
	Next() (T, error)
}

// ResumeKeyGenerator produces resume keys for node sessions. Keys are
// UUIDv4 strings, optionally prefixed with the client name so they are
// recognizable in node logs.
type ResumeKeyGenerator struct {
	Prefix string
}

func (g *ResumeKeyGenerator) Next() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	if g.Prefix == "" {
		return id.String(), nil
	}
	return g.Prefix + "-" + id.String(), nil
}

var _ Generator[string] = &ResumeKeyGenerator{}

// UUIDGenerator produces bare UUIDv4 strings.
type UUIDGenerator struct{}

func (g *UUIDGenerator) Next() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

var _ Generator[string] = &UUIDGenerator{}
