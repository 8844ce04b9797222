// Package mcp serves the grading service as Model Context Protocol tools, so
// other agents can grade Spanish translations and English pronunciation
// without playing a game.
//
// Tools:
//
//   - grade_translation: judge a Spanish translation of an English word
//   - grade_pronunciation: score a recognizer transcript against a word
//   - vocabulary: list practice words with IPA hints
//
// Every tool call grades with a fresh grader, so nothing is cached across
// calls.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/translateblitz/internal/grading"
	"github.com/MrWong99/translateblitz/internal/speech"
	"github.com/MrWong99/translateblitz/internal/vocabulary"
)

const (
	serverName    = "translateblitz"
	serverVersion = "1.0.0"
)

var errMissingWord = errors.New("word is required")

// Config wires the server to the application.
type Config struct {
	// NewGrader returns the grader for one tool call. Required.
	NewGrader func() (grading.Grader, error)

	// Vocabulary returns the practice words. Default: [vocabulary.Default].
	Vocabulary func() []string

	// PassingScore decides the passed flag of pronunciation grades.
	// Default: [grading.DefaultPassingScore].
	PassingScore int
}

// Server exposes the grading tools.
type Server struct {
	cfg Config
	srv *mcpsdk.Server
}

// NewServer creates a Server and registers its tools.
func NewServer(cfg Config) (*Server, error) {
	if cfg.NewGrader == nil {
		return nil, errors.New("mcp: NewGrader is required")
	}
	if cfg.Vocabulary == nil {
		cfg.Vocabulary = vocabulary.Default
	}
	if cfg.PassingScore <= 0 {
		cfg.PassingScore = grading.DefaultPassingScore
	}

	s := &Server{
		cfg: cfg,
		srv: mcpsdk.NewServer(&mcpsdk.Implementation{Name: serverName, Version: serverVersion}, nil),
	}

	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        "grade_translation",
		Description: "Judge whether a Spanish text is a correct translation of an English word.",
	}, s.gradeTranslation)

	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        "grade_pronunciation",
		Description: "Score how well a speech-recognizer transcript matches the English word the speaker was asked to say.",
	}, s.gradePronunciation)

	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        "vocabulary",
		Description: "List the English practice words with IPA pronunciation hints.",
	}, s.listVocabulary)

	return s, nil
}

// ServeStdio serves MCP over stdin/stdout until ctx is done or the client
// disconnects.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.srv.Run(ctx, &mcpsdk.StdioTransport{})
}

// Connect serves one session over t.
func (s *Server) Connect(ctx context.Context, t mcpsdk.Transport) (*mcpsdk.ServerSession, error) {
	return s.srv.Connect(ctx, t, nil)
}

// TranslationInput is the argument of grade_translation.
type TranslationInput struct {
	Word        string `json:"word" jsonschema:"the English word"`
	Translation string `json:"translation" jsonschema:"the Spanish translation to judge"`
}

func (s *Server) gradeTranslation(ctx context.Context, _ *mcpsdk.CallToolRequest, in TranslationInput) (*mcpsdk.CallToolResult, grading.TranslationResult, error) {
	word, text := strings.TrimSpace(in.Word), strings.TrimSpace(in.Translation)
	if word == "" {
		return nil, grading.TranslationResult{}, errMissingWord
	}
	if text == "" {
		return nil, grading.TranslationResult{}, errors.New("translation is required")
	}
	g, err := s.cfg.NewGrader()
	if err != nil {
		return nil, grading.TranslationResult{}, fmt.Errorf("mcp: %w", err)
	}
	res, err := g.GradeTranslation(ctx, word, text)
	if err != nil {
		return nil, grading.TranslationResult{}, err
	}
	return nil, res, nil
}

// PronunciationInput is the argument of grade_pronunciation.
type PronunciationInput struct {
	Word       string `json:"word" jsonschema:"the English word the speaker was asked to say"`
	Transcript string `json:"transcript" jsonschema:"what the speech recognizer heard"`
	Confidence int    `json:"confidence,omitempty" jsonschema:"recognizer confidence in percent, 0 to 100"`
}

// PronunciationOutput is the result of grade_pronunciation.
type PronunciationOutput struct {
	grading.PronunciationResult
	Passed bool `json:"passed"`
}

func (s *Server) gradePronunciation(ctx context.Context, _ *mcpsdk.CallToolRequest, in PronunciationInput) (*mcpsdk.CallToolResult, PronunciationOutput, error) {
	word := strings.TrimSpace(in.Word)
	if word == "" {
		return nil, PronunciationOutput{}, errMissingWord
	}
	best, err := speech.Best([]speech.Candidate{{Transcript: in.Transcript, Confidence: in.Confidence}})
	if err != nil {
		return nil, PronunciationOutput{}, errors.New("transcript is required")
	}
	g, err := s.cfg.NewGrader()
	if err != nil {
		return nil, PronunciationOutput{}, fmt.Errorf("mcp: %w", err)
	}
	res, err := g.GradePronunciation(ctx, word, best.Transcript, best.Confidence)
	if err != nil {
		return nil, PronunciationOutput{}, err
	}
	return nil, PronunciationOutput{
		PronunciationResult: res,
		Passed:              res.OverallScore >= s.cfg.PassingScore,
	}, nil
}

// VocabularyInput is the argument of vocabulary.
type VocabularyInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"return at most this many words; 0 returns all"`
}

// VocabularyWord is one entry of the vocabulary tool.
type VocabularyWord struct {
	Word     string `json:"word"`
	Phonetic string `json:"phonetic,omitempty"`
}

// VocabularyOutput is the result of vocabulary.
type VocabularyOutput struct {
	Words []VocabularyWord `json:"words"`
}

func (s *Server) listVocabulary(_ context.Context, _ *mcpsdk.CallToolRequest, in VocabularyInput) (*mcpsdk.CallToolResult, VocabularyOutput, error) {
	words := s.cfg.Vocabulary()
	if in.Limit > 0 && in.Limit < len(words) {
		words = words[:in.Limit]
	}
	out := VocabularyOutput{Words: make([]VocabularyWord, 0, len(words))}
	for _, w := range words {
		ipa, _ := vocabulary.Phonetic(w)
		out.Words = append(out.Words, VocabularyWord{Word: w, Phonetic: ipa})
	}
	return nil, out, nil
}
