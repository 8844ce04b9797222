package grading

import (
	"errors"
	"slices"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{name: "bare object", input: `{"correct": true}`, want: `{"correct": true}`, wantOK: true},
		{
			name:   "markdown fence",
			input:  "```json\n{\"correct\": false}\n```",
			want:   `{"correct": false}`,
			wantOK: true,
		},
		{
			name:   "prose around object",
			input:  `Claro. Aquí tienes: {"correct": true, "tips": "ok"} ¡Suerte!`,
			want:   `{"correct": true, "tips": "ok"}`,
			wantOK: true,
		},
		{
			name:   "braces inside strings",
			input:  `{"explanation": "use {el} or \"la}\"", "correct": true}`,
			want:   `{"explanation": "use {el} or \"la}\"", "correct": true}`,
			wantOK: true,
		},
		{
			name:   "nested object",
			input:  `result: {"a": {"b": 1}, "correct": true} trailing`,
			want:   `{"a": {"b": 1}, "correct": true}`,
			wantOK: true,
		},
		{
			name:   "invalid first candidate",
			input:  `{not json} then {"correct": true}`,
			want:   `{"correct": true}`,
			wantOK: true,
		},
		{name: "no object", input: "I cannot help with that.", wantOK: false},
		{name: "unterminated", input: `{"correct": true`, wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ExtractJSON(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ExtractJSON ok = %v, want %v (got %q)", ok, tt.wantOK, got)
			}
			if got != tt.want {
				t.Errorf("ExtractJSON = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseTranslation(t *testing.T) {
	t.Parallel()

	reply := "Here is my evaluation:\n```json\n" + `{
  "correct": true,
  "explanation": "Correcto, 'casa' es la traducción más común.",
  "alternatives": ["hogar", " vivienda ", ""],
  "tips": "Recuerda que casa es femenino."
}` + "\n```"

	got, err := ParseTranslation(reply)
	if err != nil {
		t.Fatalf("ParseTranslation: %v", err)
	}
	if !got.Correct {
		t.Error("Correct = false, want true")
	}
	if want := []string{"hogar", "vivienda"}; !slices.Equal(got.Alternatives, want) {
		t.Errorf("Alternatives = %v, want %v", got.Alternatives, want)
	}
	if got.Tips == "" || got.Explanation == "" {
		t.Errorf("text fields not decoded: %+v", got)
	}
}

func TestParseTranslation_Malformed(t *testing.T) {
	t.Parallel()

	for _, reply := range []string{
		"no json here",
		`{"explanation": "missing verdict"}`,
		`{"correct": "yes"}`,
	} {
		if _, err := ParseTranslation(reply); !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("ParseTranslation(%q) err = %v, want ErrMalformedResponse", reply, err)
		}
	}
}

func TestParsePronunciation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		reply   string
		want    PronunciationResult
		wantErr bool
	}{
		{
			name:  "full object",
			reply: `{"accuracy": 85, "clarity": 90, "phoneticMatch": 80, "overallScore": 85, "feedback": "Bien", "tips": "Más despacio"}`,
			want:  PronunciationResult{Accuracy: 85, Clarity: 90, PhoneticMatch: 80, OverallScore: 85, Feedback: "Bien", Tips: "Más despacio"},
		},
		{
			name:  "out of range scores are clamped",
			reply: `{"accuracy": 120, "clarity": -5, "phoneticMatch": 100, "overallScore": 101}`,
			want:  PronunciationResult{Accuracy: 100, Clarity: 0, PhoneticMatch: 100, OverallScore: 100},
		},
		{
			name:  "numeric strings and missing sub-scores",
			reply: `{"overallScore": "72.6", "clarity": "60"}`,
			want:  PronunciationResult{Accuracy: 73, Clarity: 60, PhoneticMatch: 73, OverallScore: 73},
		},
		{name: "missing overall", reply: `{"accuracy": 90}`, wantErr: true},
		{name: "not a number", reply: `{"overallScore": "great"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParsePronunciation(tt.reply)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedResponse) {
					t.Fatalf("err = %v, want ErrMalformedResponse", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePronunciation: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
