package speech

import "context"

// Transcriber converts a persisted audio artifact into text. Implementations
// return an error for anything they cannot recognize; the transcription stage
// maps every error to "no text recognized" rather than failing the request.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Synthesizer renders text to speech, writing the audio artifact to outPath.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, outPath string) error
	// AudioExt is the artifact extension this synthesizer produces (".mp3", ".wav").
	AudioExt() string
}
