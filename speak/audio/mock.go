package audio

import (
	"sync"
	"time"

	"github.com/kittycrypto-gg/readaloud/speak"
)

// MockPlayer implements speak.Player without a sound device. Each buffer
// "plays" for a fixed duration and then completes naturally. Used by tests
// and by headless runs where no audio output exists.
type MockPlayer struct {
	// PlayDuration is how long each buffer pretends to play. Zero means
	// complete immediately.
	PlayDuration time.Duration

	mu      sync.Mutex
	current *mockHandle
	played  [][]byte
	stops   int
}

// NewMockPlayer creates a silent player.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{}
}

// Play records the buffer and returns a handle that settles after
// PlayDuration.
func (m *MockPlayer) Play(pcm []byte) (speak.PlaybackHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		m.current.settle(speak.ErrInterrupted)
	}

	h := &mockHandle{done: make(chan struct{})}
	m.current = h
	m.played = append(m.played, pcm)

	d := m.PlayDuration
	go func() {
		if d > 0 {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-h.done:
				return
			case <-timer.C:
			}
		}
		h.settle(nil)
	}()
	return h, nil
}

// Stop interrupts the current handle.
func (m *MockPlayer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stops++
	if m.current != nil {
		m.current.settle(speak.ErrInterrupted)
		m.current = nil
	}
	return nil
}

// Played returns every buffer handed to Play, in order.
func (m *MockPlayer) Played() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.played))
	copy(out, m.played)
	return out
}

// StopCount returns how many times Stop was called.
func (m *MockPlayer) StopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

type mockHandle struct {
	done chan struct{}
	once sync.Once
	err  error
}

func (h *mockHandle) Wait() error {
	<-h.done
	return h.err
}

func (h *mockHandle) settle(err error) {
	h.once.Do(func() {
		h.err = err
		close(h.done)
	})
}
