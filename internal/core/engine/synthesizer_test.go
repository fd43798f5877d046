package engine

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
)

func mustMatch(t *testing.T, pattern, text, want string) {
	t.Helper()
	re, err := regexp.Compile(pattern)
	if err != nil {
		t.Fatalf("synthesized pattern %q does not compile: %v", pattern, err)
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		t.Fatalf("pattern %q does not match %q", pattern, text)
	}
	if got := trimmedGroup(m); got != want {
		t.Fatalf("pattern %q captured %q, want %q", pattern, got, want)
	}
}

func TestSynthesizeFromLineContext(t *testing.T) {
	example := "Product Number: 320331\nMDL Number: MFCD00011324\nBrand: SIGALD"

	pattern := Synthesize(example, "MFCD00011324", "", "")
	mustMatch(t, pattern, example, "MFCD00011324")
}

func TestSynthesizeWithBothSides(t *testing.T) {
	example := "Certified purity: 99.95 ± 0.02 % (GC)"

	pattern := Synthesize(example, "99.95 ± 0.02 %", "", "")
	mustMatch(t, pattern, example, "99.95 ± 0.02 %")
}

func TestSynthesizeExplicitContextWins(t *testing.T) {
	pattern := Synthesize("irrelevant", "ABC-1", "Item code:", "")
	mustMatch(t, pattern, "Item code: ABC-1", "ABC-1")
}

func TestSynthesizeValueNotFoundIsGeneric(t *testing.T) {
	pattern := Synthesize("nothing relevant here", "MFCD00011324", "", "")
	if pattern != genericCapture {
		t.Fatalf("expected generic capture, got %q", pattern)
	}
}

func TestSynthesizeLocatesCaseInsensitively(t *testing.T) {
	example := "product: acetone"

	pattern := Synthesize(example, "ACETONE", "", "")
	mustMatch(t, pattern, example, "acetone")
}

func TestCombinePatternsKeepsOldMatches(t *testing.T) {
	old := `(?i)Lot:\s*([A-Za-z0-9]+)`
	learned := `(?i)Batch:\s*([A-Za-z0-9]+)`

	combined, err := CombinePatterns(old, learned, 0)
	if err != nil {
		t.Fatalf("CombinePatterns() error = %v", err)
	}
	mustMatch(t, combined, "Lot: AB123", "AB123")
	mustMatch(t, combined, "Batch: CD456", "CD456")
}

func TestCombinePatternsIdentityCases(t *testing.T) {
	if got, _ := CombinePatterns("", "new", 0); got != "new" {
		t.Fatalf("empty existing should yield learned, got %q", got)
	}
	if got, _ := CombinePatterns("same", "same", 0); got != "same" {
		t.Fatalf("identical patterns should stay unchanged, got %q", got)
	}
	if got, _ := CombinePatterns("old", "", 0); got != "old" {
		t.Fatalf("empty learned should keep existing, got %q", got)
	}
}

func TestCombinePatternsBoundsAlternations(t *testing.T) {
	existing := `field0:\s*(\w+)`
	var combineErr error
	for i := 1; i < 30; i++ {
		next, err := CombinePatterns(existing, fmt.Sprintf(`field%d:\s*(\w+)`, i), 12)
		if err != nil {
			combineErr = err
			break
		}
		existing = next
	}
	if combineErr == nil {
		t.Fatalf("expected alternation growth to be rejected")
	}
	if !domain.IsKind(combineErr, domain.ErrPatternTooComplex) {
		t.Fatalf("expected ErrPatternTooComplex, got %v", combineErr)
	}
	// The last good pattern must still work.
	mustMatch(t, existing, "field3: value3", "value3")
}
