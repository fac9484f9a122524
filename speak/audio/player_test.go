package audio

import (
	"errors"
	"testing"
	"time"

	"github.com/kittycrypto-gg/readaloud/speak"
)

func TestDuration(t *testing.T) {
	// One second of 48kHz 16-bit mono PCM is 96000 bytes.
	tests := []struct {
		size int
		want time.Duration
	}{
		{96000, time.Second},
		{48000, 500 * time.Millisecond},
		{9600, 100 * time.Millisecond},
		{0, 0},
	}

	for _, tt := range tests {
		if got := duration(tt.size); got != tt.want {
			t.Errorf("duration(%d) = %v, want %v", tt.size, got, tt.want)
		}
	}
}

func TestMockPlayerCompletesNaturally(t *testing.T) {
	p := NewMockPlayer()
	h, err := p.Play([]byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if err := h.Wait(); err != nil {
		t.Errorf("expected natural completion, got %v", err)
	}
	if len(p.Played()) != 1 {
		t.Errorf("expected 1 played buffer, got %d", len(p.Played()))
	}
}

func TestMockPlayerStopInterrupts(t *testing.T) {
	p := NewMockPlayer()
	p.PlayDuration = time.Minute

	h, err := p.Play([]byte{1})
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := h.Wait(); !errors.Is(err, speak.ErrInterrupted) {
		t.Errorf("expected ErrInterrupted, got %v", err)
	}
}

func TestMockPlayerNewPlayInterruptsPrevious(t *testing.T) {
	p := NewMockPlayer()
	p.PlayDuration = time.Minute

	first, err := p.Play([]byte{1})
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	p.PlayDuration = 0
	second, err := p.Play([]byte{2})
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if err := first.Wait(); !errors.Is(err, speak.ErrInterrupted) {
		t.Errorf("expected first handle interrupted, got %v", err)
	}
	if err := second.Wait(); err != nil {
		t.Errorf("expected second handle to complete, got %v", err)
	}
}

func TestMockPlayerStopIdempotent(t *testing.T) {
	p := NewMockPlayer()
	if err := p.Stop(); err != nil {
		t.Errorf("Stop on idle player failed: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("second Stop failed: %v", err)
	}
	if p.StopCount() != 2 {
		t.Errorf("expected 2 stops recorded, got %d", p.StopCount())
	}
}
