package otp

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
)

const (
	codeMin = 1000
	codeMax = 9999
)

var weakCodes = map[string]struct{}{
	"0000": {}, "1111": {}, "2222": {}, "3333": {}, "4444": {},
	"5555": {}, "6666": {}, "7777": {}, "8888": {}, "9999": {},
	"0123": {}, "1234": {}, "2345": {}, "3456": {}, "4567": {},
	"5678": {}, "6789": {}, "7890": {}, "9876": {}, "3210": {},
}

// IsWeakCode reports whether code is on the issuance blacklist.
func IsWeakCode(code string) bool {
	_, weak := weakCodes[code]
	return weak
}

func WeakCodes() []string {
	codes := make([]string, 0, len(weakCodes))
	for code := range weakCodes {
		codes = append(codes, code)
	}
	return codes
}

type Generator struct {
	entropy io.Reader
}

func NewGenerator(entropy io.Reader) *Generator {
	if entropy == nil {
		entropy = rand.Reader
	}
	return &Generator{entropy: entropy}
}

// Generate draws uniformly from [1000, 9999] until the result is not a weak code.
func (g *Generator) Generate() (string, error) {
	for {
		n, err := g.draw()
		if err != nil {
			return "", fmt.Errorf("failed to read entropy: %w", err)
		}

		code := strconv.Itoa(codeMin + n)
		if !IsWeakCode(code) {
			return code, nil
		}
	}
}

// draw returns a uniform integer in [0, codeMax-codeMin] by masking two bytes
// to 14 bits and rejecting values outside the span.
func (g *Generator) draw() (int, error) {
	const span = codeMax - codeMin + 1
	var buf [2]byte
	for {
		if _, err := io.ReadFull(g.entropy, buf[:]); err != nil {
			return 0, err
		}
		n := int(binary.BigEndian.Uint16(buf[:]) & 0x3fff)
		if n < span {
			return n, nil
		}
	}
}

var defaultGenerator = NewGenerator(rand.Reader)

func GenerateCode() (string, error) {
	return defaultGenerator.Generate()
}
