// Package slug derives URL-safe tenant slugs from display names.
package slug

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	MinLength = 2
	MaxLength = 50

	fallbackSlug    = "untitled"
	maxNumbered     = 100
	randomSuffixLen = 6
)

// Alphabet for random suffixes (lowercase base36, slugs are lowercase).
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

var reserved = map[string]struct{}{
	"admin": {}, "api": {}, "www": {}, "internal": {}, "public": {},
	"health": {}, "stats": {}, "tenants": {}, "locations": {}, "users": {},
	"links": {},
}

// Make lowercases text, strips accents and replaces every run of other
// characters with a single hyphen.
func Make(text string) string {
	decomposed := norm.NFKD.String(text)

	var b strings.Builder
	pendingHyphen := false
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r) || r == '-' || r == '_':
			pendingHyphen = true
		}
	}

	s := b.String()
	if len(s) > MaxLength {
		s = strings.TrimRight(s[:MaxLength], "-")
	}
	return s
}

// IsReserved reports whether s collides with a route or system name.
func IsReserved(s string) bool {
	_, ok := reserved[strings.ToLower(s)]
	return ok
}

// Validate checks an explicitly requested slug.
func Validate(s string) error {
	if len(s) < MinLength || len(s) > MaxLength {
		return fmt.Errorf("slug must be between %d and %d characters", MinLength, MaxLength)
	}
	if IsReserved(s) {
		return fmt.Errorf("slug %q is reserved", s)
	}
	if strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-") {
		return fmt.Errorf("slug must not start or end with a hyphen")
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
			return fmt.Errorf("slug may only contain a-z, 0-9 and hyphens")
		}
	}
	return nil
}

// ExistsFunc reports whether a slug is already taken.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Unique returns base, or base-1, base-2, ... for the first free candidate.
// After maxNumbered attempts a random suffix is used.
func Unique(ctx context.Context, base string, exists ExistsFunc) (string, error) {
	if base == "" || len(base) < MinLength {
		base = fallbackSlug
	}
	if IsReserved(base) {
		base += "-tenant"
	}

	for i := 0; i <= maxNumbered; i++ {
		candidate := base
		if i > 0 {
			candidate = withSuffix(base, fmt.Sprintf("%d", i))
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	suffix, err := randomSuffix(randomSuffixLen)
	if err != nil {
		return "", err
	}
	return withSuffix(base, suffix), nil
}

func withSuffix(base, suffix string) string {
	maxBase := MaxLength - len(suffix) - 1
	if len(base) > maxBase {
		base = strings.TrimRight(base[:maxBase], "-")
	}
	return base + "-" + suffix
}

// randomSuffix returns a cryptographically random base36 string.
func randomSuffix(length int) (string, error) {
	// Rejection sampling to avoid modulo bias.
	// 252 is the largest multiple of 36 below 256.
	const maxRandomByte = 252

	out := make([]byte, length)
	buf := make([]byte, length*2)
	written := 0
	for written < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read secure random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= maxRandomByte {
				continue
			}
			out[written] = alphabet[int(b)%len(alphabet)]
			written++
			if written == length {
				break
			}
		}
	}
	return string(out), nil
}
