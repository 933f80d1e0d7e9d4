package identity

import (
	"testing"
)

const (
	base = "https://www.zotero.org/groups/12345"
	ns   = "http://kb.example.org"
)

func TestResolveIsPureAndEncoded(t *testing.T) {
	r := NewResolver(base, ns, 100)
	a := r.Resolve("items", "ABC123")
	b := r.Resolve("items", "ABC123")
	if a != b {
		t.Fatalf("Resolve not deterministic: %s vs %s", a, b)
	}
	if string(a) != base+"/items/ABC123" {
		t.Errorf("unexpected IRI %s", a)
	}
	if got := r.Resolve("items", "A/B"); string(got) != base+"/items/A%2FB" {
		t.Errorf("key not encoded: %s", got)
	}
}

func TestResolveSharedExactConvergence(t *testing.T) {
	// Two resolvers, different call orders: exact labels must mint the
	// same IRI because the hash depends only on namespace, role and the
	// normalized label.
	r1 := NewResolver(base, ns, 100)
	r2 := NewResolver("https://www.zotero.org/groups/999", ns, 100)

	a, _ := r1.ResolveShared("tags", "Important")
	r2.ResolveShared("tags", "other")
	b, _ := r2.ResolveShared("tags", "  important ")

	if a != b {
		t.Errorf("labels did not converge: %s vs %s", a, b)
	}
}

func TestResolveSharedDistinctBelowThreshold(t *testing.T) {
	r := NewResolver(base, ns, 90)
	a, _ := r.ResolveShared("tags", "medieval history")
	b, _ := r.ResolveShared("tags", "modern art")
	if a == b {
		t.Error("unrelated labels converged")
	}
}

func TestResolveSharedFuzzyFoldsIntoEarliestSeen(t *testing.T) {
	r := NewResolver(base, ns, 80)
	a, labelA := r.ResolveShared("persons", "Goethe, Johann Wolfgang")
	b, labelB := r.ResolveShared("persons", "Goethe, Johann Wolfgang.")
	if a != b {
		t.Fatalf("near-duplicates did not fold: %s vs %s", a, b)
	}
	if labelA != "Goethe, Johann Wolfgang" || labelB != "Goethe, Johann Wolfgang" {
		t.Errorf("canonical label should be the earliest seen, got %q / %q", labelA, labelB)
	}
}

func TestResolveSharedThreshold100DisablesFuzzy(t *testing.T) {
	r := NewResolver(base, ns, 100)
	a, _ := r.ResolveShared("persons", "Goethe, Johann Wolfgang")
	b, _ := r.ResolveShared("persons", "Goethe, Johann Wolfgang.")
	if a == b {
		t.Error("fuzzy folding happened at threshold 100")
	}
}

func TestNormalizeLabel(t *testing.T) {
	if got := NormalizeLabel("  Foo \t Bar "); got != "foo bar" {
		t.Errorf("NormalizeLabel = %q", got)
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("abc", "abc"); got != 100 {
		t.Errorf("identical strings: %d", got)
	}
	if got := Similarity("abc", "xyz"); got != 0 {
		t.Errorf("disjoint strings: %d", got)
	}
	if got := Similarity("kitten", "sitten"); got != 83 {
		t.Errorf("one edit over six runes: %d", got)
	}
}
