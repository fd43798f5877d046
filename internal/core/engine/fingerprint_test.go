package engine

import "testing"

func TestFingerprintShapes(t *testing.T) {
	text := "CAS Number: 67-64-1\n2-Propanol\nWARNING LABEL\nAcetone\nliquid"

	if got := Fingerprint(text); got != ":#UAa|xs" {
		t.Fatalf("Fingerprint() = %q, want %q", got, ":#UAa|xs")
	}
}

func TestFingerprintSkipsBlankLines(t *testing.T) {
	if got, want := Fingerprint("\n\nAcetone\n\n"), Fingerprint("Acetone"); got != want {
		t.Fatalf("blank lines should not affect the signature: %q vs %q", got, want)
	}
}

func TestSimilarityIdentical(t *testing.T) {
	fp := Fingerprint("Product Name: Acetone\nBatch Number: AB123")
	if got := Similarity(fp, fp); got != 1.0 {
		t.Fatalf("Similarity(fp, fp) = %f, want 1.0", got)
	}
}

func TestSimilarityUsesShorterSignature(t *testing.T) {
	if got := Similarity(":#U", ":#UAa"); got != 1.0 {
		t.Fatalf("expected full match over shorter signature, got %f", got)
	}
	if got := Similarity("aaaa", "aabb"); got != 0.5 {
		t.Fatalf("expected 0.5, got %f", got)
	}
}

func TestSimilarityEmpty(t *testing.T) {
	if got := Similarity("", ":#U"); got != 0 {
		t.Fatalf("expected 0 for empty signature, got %f", got)
	}
}
