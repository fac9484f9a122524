// Package audio plays synthesized PCM buffers through the system audio
// device using oto.
package audio

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/kittycrypto-gg/readaloud/speak"
)

// PCM format the speech provider is asked for. The oto context is created
// once with these values and reused for every buffer.
const (
	SampleRate = 48000
	Channels   = 1
	BitDepth   = 16
)

const pollInterval = 25 * time.Millisecond

// Player implements speak.Player on top of an oto context. Starting a new
// buffer interrupts whatever was playing before.
type Player struct {
	context *oto.Context

	mu      sync.Mutex
	current *handle
}

// NewPlayer initializes the audio device. Creation blocks until the device
// is ready.
func NewPlayer() (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("audio: create context: %w", err)
	}
	<-ready

	return &Player{context: ctx}, nil
}

// Play starts the buffer and returns immediately. Any buffer still playing
// is stopped first and its handle settles with speak.ErrInterrupted.
func (p *Player) Play(pcm []byte) (speak.PlaybackHandle, error) {
	if len(pcm) == 0 {
		return nil, fmt.Errorf("audio: empty buffer")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil {
		p.current.interrupt()
	}

	// The byte slice must stay referenced for the lifetime of the oto
	// player or playback degrades to static.
	h := &handle{
		data: pcm,
		done: make(chan struct{}),
	}
	h.player = p.context.NewPlayer(bytes.NewReader(pcm))
	h.player.Play()
	p.current = h

	go h.watch(duration(len(pcm)))
	return h, nil
}

// Stop interrupts the current buffer, if any. Safe to call repeatedly.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil {
		p.current.interrupt()
		p.current = nil
	}
	return nil
}

// duration computes how long a PCM buffer plays for.
func duration(size int) time.Duration {
	bytesPerSecond := SampleRate * Channels * (BitDepth / 8)
	return time.Duration(size) * time.Second / time.Duration(bytesPerSecond)
}

// handle tracks one buffer from start to settlement.
type handle struct {
	data   []byte
	player *oto.Player
	done   chan struct{}

	once sync.Once
	err  error
}

// Wait blocks until the buffer finishes. A nil result means natural
// completion; speak.ErrInterrupted means Stop or a newer Play cut it short.
func (h *handle) Wait() error {
	<-h.done
	return h.err
}

func (h *handle) interrupt() {
	h.settle(speak.ErrInterrupted)
}

func (h *handle) settle(err error) {
	h.once.Do(func() {
		h.err = err
		h.player.Pause()
		if closeErr := h.player.Close(); closeErr != nil && err == nil {
			h.err = fmt.Errorf("audio: close player: %w", closeErr)
		}
		h.data = nil
		close(h.done)
	})
}

// watch polls the oto player until the buffer drains, then settles the
// handle. An interrupt settles it first and the poll loop exits on done.
func (h *handle) watch(max time.Duration) {
	deadline := time.NewTimer(max + time.Second)
	defer deadline.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-deadline.C:
			h.settle(nil)
			return
		case <-ticker.C:
			if !h.player.IsPlaying() {
				h.settle(nil)
				return
			}
		}
	}
}
