package engine

import (
	"strings"
	"unicode"
)

const fingerprintLines = 20

// Fingerprint derives a compact structural signature from document text: one
// shape character per non-empty line for the first fingerprintLines lines,
// followed by a coarse length bucket. It is an approximate-similarity key,
// not an identity.
func Fingerprint(text string) string {
	var sb strings.Builder
	seen := 0
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		sb.WriteByte(lineShape(trimmed))
		seen++
		if seen >= fingerprintLines {
			break
		}
	}
	sb.WriteByte('|')
	sb.WriteString(lengthBucket(len(text)))
	return sb.String()
}

// Similarity is the position-wise character match ratio over the shorter
// signature. 1.0 means identical shape, 0.0 means nothing in common.
func Similarity(fp1, fp2 string) float64 {
	n := len(fp1)
	if len(fp2) < n {
		n = len(fp2)
	}
	if n == 0 {
		return 0
	}
	matches := 0
	for i := 0; i < n; i++ {
		if fp1[i] == fp2[i] {
			matches++
		}
	}
	return float64(matches) / float64(n)
}

func lineShape(line string) byte {
	first := rune(line[0])
	switch {
	case strings.Contains(line, ":"):
		return ':'
	case unicode.IsDigit(first):
		return '#'
	case isMostlyUpper(line):
		return 'U'
	case unicode.IsUpper(first):
		return 'A'
	default:
		return 'a'
	}
}

func isMostlyUpper(line string) bool {
	upper, letters := 0, 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	return letters >= 3 && upper*10 >= letters*8
}

func lengthBucket(n int) string {
	switch {
	case n < 500:
		return "xs"
	case n < 2000:
		return "s"
	case n < 8000:
		return "m"
	case n < 32000:
		return "l"
	default:
		return "xl"
	}
}
