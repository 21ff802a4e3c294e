package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// InviteAlphabet drops characters that are easy to misread (0/O, 1/I/L).
const InviteAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const minInviteCodeLength = 6

// Generator creates opaque IDs suitable for external references.
type Generator interface {
	NewID() (string, error)
}

// CodeGenerator creates short human-shareable codes.
type CodeGenerator interface {
	NewCode(length int) (string, error)
}

type RandomGenerator struct{}

func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

func (g *RandomGenerator) NewID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// NewCode returns an uppercase code drawn from InviteAlphabet. Bytes that
// would bias the modulo are rejected and redrawn.
func (g *RandomGenerator) NewCode(length int) (string, error) {
	if length < minInviteCodeLength {
		length = minInviteCodeLength
	}

	limit := byte(256 - 256%len(InviteAlphabet))
	out := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes for code: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, InviteAlphabet[int(b)%len(InviteAlphabet)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}

// IsCode reports whether v looks like a code produced by NewCode.
func IsCode(v string) bool {
	if len(v) < minInviteCodeLength || len(v) > 32 {
		return false
	}
	for i := 0; i < len(v); i++ {
		if !inAlphabet(v[i]) {
			return false
		}
	}
	return true
}

func inAlphabet(c byte) bool {
	for i := 0; i < len(InviteAlphabet); i++ {
		if InviteAlphabet[i] == c {
			return true
		}
	}
	return false
}
