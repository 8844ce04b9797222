package grading

import (
	"context"
	"slices"
	"strings"
	"testing"
)

func TestHeuristic_GradeTranslation(t *testing.T) {
	t.Parallel()

	h := NewHeuristic()
	tests := []struct {
		name string
		word string
		text string
		want bool
	}{
		{name: "article stripped", word: "house", text: "la casa", want: true},
		{name: "exact", word: "house", text: "casa", want: true},
		{name: "synonym", word: "house", text: "hogar", want: true},
		{name: "case and space folded", word: "house", text: "  El Hogar ", want: true},
		{name: "indefinite article", word: "book", text: "un libro", want: true},
		{name: "plural article", word: "friend", text: "los amigo", want: true},
		{name: "wrong word", word: "house", text: "coche", want: false},
		{name: "article alone", word: "house", text: "la", want: false},
		{name: "word not in dictionary", word: "spaceship", text: "nave", want: false},
		{name: "accentless variant", word: "difficult", text: "dificil", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := h.GradeTranslation(context.Background(), tt.word, tt.text)
			if err != nil {
				t.Fatalf("GradeTranslation returned error: %v", err)
			}
			if got.Correct != tt.want {
				t.Errorf("GradeTranslation(%q, %q).Correct = %v, want %v", tt.word, tt.text, got.Correct, tt.want)
			}
			if got.Explanation == "" {
				t.Error("Explanation is empty")
			}
		})
	}
}

func TestHeuristic_GradeTranslation_Alternatives(t *testing.T) {
	t.Parallel()

	h := NewHeuristic()
	got, _ := h.GradeTranslation(context.Background(), "house", "la casa")
	if want := []string{"hogar", "vivienda"}; !slices.Equal(got.Alternatives, want) {
		t.Errorf("Alternatives = %v, want %v", got.Alternatives, want)
	}

	miss, _ := h.GradeTranslation(context.Background(), "house", "caza")
	if miss.Correct {
		t.Fatal("caza graded correct")
	}
	if !strings.Contains(miss.Tips, `"casa"`) {
		t.Errorf("Tips = %q, want a suggestion of casa", miss.Tips)
	}
}

func TestHeuristic_GradePronunciation(t *testing.T) {
	t.Parallel()

	h := NewHeuristic()
	tests := []struct {
		name       string
		word       string
		spoken     string
		confidence int
		wantMin    int
		wantMax    int
	}{
		{name: "exact", word: "house", spoken: "House", confidence: 40, wantMin: 100, wantMax: 100},
		{name: "contained high confidence", word: "house", spoken: "the house", confidence: 90, wantMin: 80, wantMax: 80},
		{name: "contained low confidence", word: "house", spoken: "my house", confidence: 30, wantMin: 75, wantMax: 75},
		{name: "near miss capped", word: "water", spoken: "waiter", confidence: 100, wantMin: 1, wantMax: 70},
		{name: "unrelated", word: "banana", spoken: "tomorrow", confidence: 20, wantMin: 0, wantMax: 50},
		{name: "empty transcript", word: "house", spoken: "", confidence: 90, wantMin: 0, wantMax: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := h.GradePronunciation(context.Background(), tt.word, tt.spoken, tt.confidence)
			if err != nil {
				t.Fatalf("GradePronunciation returned error: %v", err)
			}
			if got.OverallScore < tt.wantMin || got.OverallScore > tt.wantMax {
				t.Errorf("OverallScore = %d, want in [%d, %d]", got.OverallScore, tt.wantMin, tt.wantMax)
			}
			if got.Feedback == "" {
				t.Error("Feedback is empty")
			}
		})
	}
}

func TestHeuristic_GradePronunciation_Deterministic(t *testing.T) {
	t.Parallel()

	h := NewHeuristic()
	first, _ := h.GradePronunciation(context.Background(), "beautiful", "beautyfull", 64)
	for range 10 {
		got, _ := h.GradePronunciation(context.Background(), "beautiful", "beautyfull", 64)
		if got != first {
			t.Fatalf("result changed between calls: %+v vs %+v", got, first)
		}
	}
}

func TestMock(t *testing.T) {
	t.Parallel()

	m := NewMock()
	tr, err := m.GradeTranslation(context.Background(), "house", "la casa")
	if err != nil || !tr.Correct {
		t.Errorf("GradeTranslation = %+v, %v; want correct", tr, err)
	}
	tr, _ = m.GradeTranslation(context.Background(), "house", "perro")
	if tr.Correct {
		t.Error("mock accepted a wrong translation")
	}
	pr, err := m.GradePronunciation(context.Background(), "house", "anything", 0)
	if err != nil || pr.OverallScore != DefaultMockScore {
		t.Errorf("GradePronunciation = %+v, %v; want score %d", pr, err, DefaultMockScore)
	}
}
