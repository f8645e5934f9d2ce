package classify

import (
	"reflect"
	"testing"
)

func TestTagsForCategories(t *testing.T) {
	got := TagsForCategories([]string{"cs.LG", " stat.ML ", "quant-ph", "cs.xx", ""})
	want := []string{
		"Machine Learning", "Computer Science", "Statistics",
		"Quantum Computing",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTagsForCategoriesDeduplicates(t *testing.T) {
	got := TagsForCategories([]string{"cs.lg", "stat.ml"})
	for i, a := range got {
		for j, b := range got {
			if i != j && a == b {
				t.Fatalf("duplicate tag %q in %v", a, got)
			}
		}
	}
}

func TestTechnologiesMatchesPhrasesCaseInsensitively(t *testing.T) {
	got := Technologies("RLHF for Large Language Model alignment", "a RAG pipeline study")
	want := []string{"Large Language Models", "Reinforcement Learning", "Retrieval-Augmented Generation"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if Technologies("") != nil {
		t.Fatal("empty input should yield nil")
	}
}

func TestIndustriesMultiLabel(t *testing.T) {
	got := Industries("Fraud detection for clinical trial payments")
	want := []string{"Finance", "Healthcare", "Pharmaceuticals"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestKnownVocabulariesSorted(t *testing.T) {
	for _, vocab := range [][]string{KnownTechnologies(), KnownIndustries()} {
		for i := 1; i < len(vocab); i++ {
			if vocab[i-1] >= vocab[i] {
				t.Fatalf("vocabulary not sorted around %q", vocab[i])
			}
		}
	}
}
