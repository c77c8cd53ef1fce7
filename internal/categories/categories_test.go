package categories

import (
	"strings"
	"testing"
)

func TestListIsStableAndNonEmpty(t *testing.T) {
	first := List()
	if len(first) == 0 {
		t.Fatal("expected at least one category definition")
	}
	second := List()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("List ordering changed between calls at index %d", i)
		}
	}
	// Mutating a returned slice must not leak back into the registry.
	first[0].Key = "mutated"
	if List()[0].Key == "mutated" {
		t.Fatal("List returned a reference to internal state")
	}
}

func TestIsValidKey(t *testing.T) {
	for _, d := range List() {
		if !IsValidKey(d.Key) {
			t.Errorf("IsValidKey(%q) = false for a registered key", d.Key)
		}
	}
	cases := []string{"", "not_a_real_category", "Gratitudes", "gratitudes "}
	for _, key := range cases {
		if IsValidKey(key) {
			t.Errorf("IsValidKey(%q) = true, want false", key)
		}
	}
}

func TestBuildClassificationPromptCoversRegistry(t *testing.T) {
	text := "I feel grateful for my family today."
	prompt := BuildClassificationPrompt(text)

	if !strings.Contains(prompt, text) {
		t.Fatal("prompt does not embed the target text")
	}
	for _, d := range List() {
		if !strings.Contains(prompt, d.Key) {
			t.Errorf("prompt missing category key %q", d.Key)
		}
		if !strings.Contains(prompt, d.Description) {
			t.Errorf("prompt missing description for %q", d.Key)
		}
	}
	if !strings.Contains(prompt, "JSON array") {
		t.Error("prompt missing output-format instruction")
	}
}
