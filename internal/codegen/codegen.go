// Package codegen produces the public numeric codes users type to fetch a movie.
package codegen

import (
	"math/rand/v2"
	"strings"
)

// DefaultLength is used when a non-positive length is requested.
const DefaultLength = 5

// Generator returns random fixed-length numeric codes. The store's unique
// index is the real collision guard, so callers retry on a duplicate.
type Generator struct {
	length int
	intN   func(n int) int
}

// New returns a Generator producing codes of the given length.
func New(length int) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	return &Generator{length: length, intN: rand.IntN}
}

// NewWithSource is New with a caller-supplied randomness source.
func NewWithSource(length int, src rand.Source) *Generator {
	g := New(length)
	g.intN = rand.New(src).IntN
	return g
}

// Length reports the number of digits in generated codes.
func (g *Generator) Length() int {
	return g.length
}

// Next returns a new code. The leading digit is never zero.
func (g *Generator) Next() string {
	var b strings.Builder
	b.Grow(g.length)
	b.WriteByte(byte('1' + g.intN(9)))
	for i := 1; i < g.length; i++ {
		b.WriteByte(byte('0' + g.intN(10)))
	}
	return b.String()
}

// Valid reports whether s looks like a code: non-empty and digits only.
func Valid(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
