package giftcard

import (
	"crypto/rand"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeGroups   = 3
	codeGroupLen = 4
	codeLength   = codeGroups * codeGroupLen
	// Bytes at or above this value are discarded so every symbol is equally likely.
	codeByteLimit = 256 - 256%len(codeAlphabet)
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// CodeGenerator returns a fresh voucher code. It does not guarantee uniqueness.
type CodeGenerator func() (string, error)

// NewCodeGenerator returns a generator backed by crypto/rand.
func NewCodeGenerator() CodeGenerator {
	return func() (string, error) {
		return GenerateCode(rand.Reader)
	}
}

// GenerateCode draws a code such as AB12-CD34-EF56 from r.
func GenerateCode(r io.Reader) (string, error) {
	var b strings.Builder
	b.Grow(codeLength + codeGroups - 1)

	buf := make([]byte, 16)
	n := 0
	for n < codeLength {
		if _, errRead := io.ReadFull(r, buf); errRead != nil {
			return "", fmt.Errorf("giftcard: read random: %w", errRead)
		}
		for _, v := range buf {
			if int(v) >= codeByteLimit {
				continue
			}
			if n > 0 && n%codeGroupLen == 0 {
				b.WriteByte('-')
			}
			b.WriteByte(codeAlphabet[int(v)%len(codeAlphabet)])
			n++
			if n == codeLength {
				break
			}
		}
	}
	return b.String(), nil
}

// ValidCode reports whether code has the AAAA-BBBB-CCCC shape.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// NormalizeCode trims and upper-cases a code typed by a person.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
