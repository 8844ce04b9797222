package tts

// Request describes one synthesis call.
type Request struct {
	// Text is the text to speak.
	Text string

	// Voice is the provider-specific voice or speaker identifier. Empty
	// selects the provider default.
	Voice string

	// Language is the BCP-47 language of Text. Empty selects the provider
	// default.
	Language string

	// Rate scales the speaking speed: 1.0 is normal, 0.6 is the slow
	// practice speed. Zero means 1.0.
	Rate float64
}

// Audio is a synthesized clip ready to be served to a browser.
type Audio struct {
	Data        []byte
	ContentType string
}
