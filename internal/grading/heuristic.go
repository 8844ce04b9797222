package grading

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"

	"github.com/MrWong99/translateblitz/internal/phonetic"
)

// Heuristic grades without any remote call. It never returns an error.
type Heuristic struct {
	matcher *phonetic.Matcher
}

var _ Grader = (*Heuristic)(nil)

// NewHeuristic returns a [Heuristic] grader.
func NewHeuristic() *Heuristic {
	return &Heuristic{matcher: phonetic.New()}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// stripArticle removes one leading Spanish article.
func stripArticle(s string) string {
	first, rest, ok := strings.Cut(s, " ")
	if ok && lo.Contains(articles, first) {
		return strings.TrimSpace(rest)
	}
	return s
}

// GradeTranslation accepts text when it matches a dictionary entry for word,
// with or without a leading article.
func (h *Heuristic) GradeTranslation(_ context.Context, word, text string) (TranslationResult, error) {
	known := Translations(word)
	if len(known) == 0 {
		return TranslationResult{
			Correct:     false,
			Explanation: fmt.Sprintf("No se pudo validar %q sin conexión: la palabra no está en el diccionario local.", word),
			Tips:        "Verifica tu conexión a internet para obtener validación de IA.",
		}, nil
	}

	answer := normalize(text)
	bare := stripArticle(answer)
	if lo.Contains(known, answer) || lo.Contains(known, bare) {
		return TranslationResult{
			Correct:      true,
			Explanation:  fmt.Sprintf("¡Correcto! %q significa %q.", bare, word),
			Alternatives: lo.Filter(known, func(k string, _ int) bool { return k != bare }),
			Tips:         "Validado con el diccionario local.",
		}, nil
	}

	res := TranslationResult{
		Correct:      false,
		Explanation:  fmt.Sprintf("%q no es una traducción aceptada de %q.", text, word),
		Alternatives: known,
		Tips:         "Validado con el diccionario local.",
	}
	if best, _, ok := h.matcher.Closest(bare, known); ok {
		res.Tips = fmt.Sprintf("¿Quisiste decir %q? Revisa la ortografía.", best)
	}
	return res, nil
}

// GradePronunciation scores spoken against word deterministically: an exact
// match scores 100, containment either way 75 or 80 depending on recognizer
// confidence, anything else blends confidence and phonetic similarity up to
// a cap of 70.
func (h *Heuristic) GradePronunciation(_ context.Context, word, spoken string, confidence int) (PronunciationResult, error) {
	target := normalize(word)
	said := normalize(spoken)
	confidence = clampScore(confidence)

	sim := h.matcher.Similarity(said, target)
	phoneticPct := int(math.Round(sim.Similarity * 100))

	var overall int
	switch {
	case said == "" || target == "":
		overall = 0
	case said == target:
		overall = 100
	case strings.Contains(said, target) || strings.Contains(target, said):
		overall = lo.Ternary(confidence >= 50, 80, 75)
	default:
		blend := 0.5*float64(confidence) + 0.5*float64(phoneticPct)
		if !sim.SoundsAlike {
			blend *= 0.8
		}
		overall = min(int(math.Round(blend)), 70)
	}

	return PronunciationResult{
		Accuracy:      overall,
		Clarity:       confidence,
		PhoneticMatch: phoneticPct,
		OverallScore:  overall,
		Feedback:      pronunciationFeedback(overall),
		Tips:          "Evaluación local: escucha la pronunciación lenta y repite.",
	}.clamp(), nil
}

func pronunciationFeedback(score int) string {
	switch {
	case score >= 90:
		return "¡Excelente pronunciación!"
	case score >= 80:
		return "Buena pronunciación."
	case score >= 70:
		return "Pronunciación adecuada."
	case score >= 60:
		return "Pronunciación mejorable."
	default:
		return "La pronunciación no coincide con la palabra."
	}
}
