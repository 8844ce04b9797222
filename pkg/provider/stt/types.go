package stt

// Transcript is one recognition hypothesis.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// Confidence is the recognizer's confidence in [0, 1]. Zero means the
	// provider does not report one.
	Confidence float64
}
