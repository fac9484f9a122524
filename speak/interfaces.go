package speak

import (
	"context"

	"github.com/kittycrypto-gg/readaloud/speak/region"
)

// Paragraph is one speakable segment of the loaded document.
type Paragraph struct {
	Index int    // Position in the sequence (0-based)
	ID    string // Stable identifier, used for bookmarks
	Text  string // Plain text to synthesize; may be empty for unspeakable blocks
}

// IndexHint points at the paragraph a session should resume from.
type IndexHint struct {
	ID    string
	Index int
}

// ParagraphProvider supplies the ordered paragraph sequence and the resume
// position derived from a prior bookmark. The sequence is immutable for the
// lifetime of a session; a document reload builds a new provider and a new
// session.
type ParagraphProvider interface {
	Paragraphs() []Paragraph
	InitialIndexHint() *IndexHint
}

// SynthesisRequest describes one text-to-audio conversion.
type SynthesisRequest struct {
	Credential string
	Region     string
	Voice      string
	Text       string
	Rate       float64
}

// Synthesizer converts text to a complete playable audio buffer in one shot.
// Implementations must not retry internally; retry policy belongs to the
// session.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error)
}

// Resolver finds a usable service region for a credential.
type Resolver interface {
	Resolve(ctx context.Context, credential, preferred string) (region.Result, error)
}

// PlaybackHandle represents one in-flight playback. Wait blocks until the
// audio finishes naturally (nil), is cut short by Stop (ErrInterrupted), or
// the output sink fails (any other error). Exactly one of these outcomes is
// ever reported per handle.
type PlaybackHandle interface {
	Wait() error
}

// Player is the audio output sink. Starting a new playback stops any live
// handle first; at most one handle is live at a time. Stop with no active
// handle is a no-op.
type Player interface {
	Play(audio []byte) (PlaybackHandle, error)
	Stop() error
}

// BookmarkSink persists the resume position for the surrounding document.
// Writes are last-write-wins.
type BookmarkSink interface {
	Persist(id string, index int) error
	Clear() error
}

// Surface is notified of session changes for presentation purposes. Push
// only; the session never waits on the surface.
type Surface interface {
	ParagraphChanged(index int)
	StateChanged(state StateType)
	SessionError(err error)
}
