package grading

import (
	"fmt"

	"github.com/MrWong99/translateblitz/internal/vocabulary"
)

func translationPrompt(word, text string) string {
	return fmt.Sprintf(`You are a Spanish teacher. Is %q a correct Spanish translation of %q?

Consider: exact matches, synonyms, regional variations (Mexican/Spanish/Argentine), with/without articles.

Respond with ONLY this JSON format:
{
  "correct": true/false,
  "explanation": "Brief Spanish explanation",
  "alternatives": ["alt1", "alt2", "alt3"],
  "tips": "Brief Spanish tip"
}

Evaluate: %q → %q`, text, word, word, text)
}

func pronunciationPrompt(word, spoken string, confidence int) string {
	target := fmt.Sprintf("%q", word)
	if ipa, ok := vocabulary.Phonetic(word); ok {
		target += " " + ipa
	}
	return fmt.Sprintf(`You are an English pronunciation coach. Analyze pronunciation of %s.

Student said: %q
Recognition confidence: %d%%

Rate pronunciation considering Spanish speaker difficulties with English sounds.

Respond with ONLY this JSON:
{
  "accuracy": 85,
  "clarity": 90,
  "phoneticMatch": 80,
  "overallScore": 85,
  "feedback": "Spanish explanation of quality",
  "tips": "Spanish improvement tip"
}

Score 0-100: 90+=excellent, 80+=good, 70+=adequate, 60+=poor, <60=very poor`, target, spoken, confidence)
}
