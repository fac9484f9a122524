package speak

import "sync"

// lookaheadBuffer is a single-slot cache for one prefetched paragraph's
// audio. The slot always refers to the paragraph after the one currently
// playing; take refuses stale indices so navigation can never replay audio
// synthesized for an old position.
type lookaheadBuffer struct {
	mu    sync.Mutex
	index int
	audio []byte
	full  bool
}

// set stores audio for the given index, overwriting any existing slot.
func (b *lookaheadBuffer) set(index int, audio []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.index = index
	b.audio = audio
	b.full = true
}

// take returns the audio and empties the slot only when the stored index
// matches.
func (b *lookaheadBuffer) take(index int) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.full || b.index != index {
		return nil, false
	}
	audio := b.audio
	b.index = 0
	b.audio = nil
	b.full = false
	return audio, true
}

// holds reports whether the slot currently stores audio for the index.
func (b *lookaheadBuffer) holds(index int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.full && b.index == index
}

// clear empties the slot unconditionally.
func (b *lookaheadBuffer) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.index = 0
	b.audio = nil
	b.full = false
}
