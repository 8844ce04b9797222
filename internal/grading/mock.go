package grading

import "context"

// DefaultMockScore is the pronunciation score [Mock] returns.
const DefaultMockScore = 85

// Mock answers without any backend. Translations are judged by the local
// dictionary; every pronunciation attempt receives Score.
type Mock struct {
	Score int

	heuristic *Heuristic
}

var _ Grader = (*Mock)(nil)

// NewMock returns a [Mock] scoring pronunciations at [DefaultMockScore].
func NewMock() *Mock {
	return &Mock{Score: DefaultMockScore, heuristic: NewHeuristic()}
}

// GradeTranslation implements [Grader].
func (m *Mock) GradeTranslation(ctx context.Context, word, text string) (TranslationResult, error) {
	res, _ := m.heuristic.GradeTranslation(ctx, word, text)
	res.Tips = "Modo de práctica sin conexión."
	return res, nil
}

// GradePronunciation implements [Grader].
func (m *Mock) GradePronunciation(_ context.Context, _, _ string, _ int) (PronunciationResult, error) {
	s := clampScore(m.Score)
	return PronunciationResult{
		Accuracy:      s,
		Clarity:       s,
		PhoneticMatch: s,
		OverallScore:  s,
		Feedback:      pronunciationFeedback(s),
		Tips:          "Modo de práctica sin conexión.",
	}, nil
}
