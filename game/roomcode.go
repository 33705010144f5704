package game

import (
	"math/rand/v2"
	"regexp"
	"strings"
)

const (
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomCodeLength   = 7
)

var roomCodePattern = regexp.MustCompile(`^[A-HJ-NP-Z2-9]{7}$`)

func NormalizeRoomCode(input string) string {
	return strings.ToUpper(strings.TrimSpace(input))
}

func ValidRoomCode(code string) bool {
	return roomCodePattern.MatchString(code)
}

type codeGenerator struct {
	intN func(n int) int
}

func newCodeGenerator() *codeGenerator {
	return &codeGenerator{intN: rand.IntN}
}

// generate draws codes until one is not taken.
func (g *codeGenerator) generate(taken func(string) bool) string {
	for {
		var b strings.Builder
		b.Grow(roomCodeLength)
		for range roomCodeLength {
			b.WriteByte(roomCodeAlphabet[g.intN(len(roomCodeAlphabet))])
		}
		if code := b.String(); !taken(code) {
			return code
		}
	}
}
