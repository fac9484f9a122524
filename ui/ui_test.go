package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kittycrypto-gg/readaloud/speak"
	"github.com/kittycrypto-gg/readaloud/speak/region"
)

type stubProvider struct{ paras []speak.Paragraph }

func (p stubProvider) Paragraphs() []speak.Paragraph      { return p.paras }
func (p stubProvider) InitialIndexHint() *speak.IndexHint { return nil }

type stubResolver struct{}

func (stubResolver) Resolve(context.Context, string, string) (region.Result, error) {
	return region.Result{Region: "eastus", Reason: region.ReasonOK}, nil
}

type stubSynth struct{}

func (stubSynth) Synthesize(_ context.Context, req speak.SynthesisRequest) ([]byte, error) {
	return []byte(req.Text), nil
}

type stubHandle struct{}

func (stubHandle) Wait() error { return nil }

type stubPlayer struct{}

func (stubPlayer) Play([]byte) (speak.PlaybackHandle, error) { return stubHandle{}, nil }
func (stubPlayer) Stop() error                               { return nil }

func testSession(t *testing.T) *speak.Session {
	t.Helper()
	session, err := speak.NewSession(speak.SessionDeps{
		Paragraphs: stubProvider{paras: []speak.Paragraph{{Index: 0, ID: "p0", Text: "hello"}}},
		Resolver:   stubResolver{},
		Synth:      stubSynth{},
		Player:     stubPlayer{},
	}, speak.Options{Credential: "key"})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func sizedModel(t *testing.T, cfg Config) model {
	t.Helper()
	m := newModel(cfg, "# Title\n\nhello\n", testSession(t))
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(model)
}

func TestModelTracksSessionMessages(t *testing.T) {
	m := sizedModel(t, Config{})

	updated, _ := m.Update(speak.StateChangedMsg{State: speak.StatePlaying})
	m = updated.(model)
	if m.state != speak.StatePlaying {
		t.Errorf("state not tracked: %v", m.state)
	}

	updated, _ = m.Update(speak.ParagraphChangedMsg{Index: 3, Total: 10})
	m = updated.(model)
	if m.index != 3 || m.total != 10 {
		t.Errorf("paragraph not tracked: %d/%d", m.index, m.total)
	}

	updated, _ = m.Update(speak.SessionErrorMsg{Err: errors.New("boom")})
	m = updated.(model)
	if m.lastErr == nil {
		t.Error("error not tracked")
	}

	// A transition back to playing clears the surfaced error.
	updated, _ = m.Update(speak.StateChangedMsg{State: speak.StatePlaying})
	m = updated.(model)
	if m.lastErr != nil {
		t.Error("error not cleared on resume")
	}
}

func TestModelQuitKey(t *testing.T) {
	m := sizedModel(t, Config{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("expected tea.QuitMsg, got %T", cmd())
	}
}

func TestModelHelpToggle(t *testing.T) {
	m := sizedModel(t, Config{})
	base := m.viewport.Height

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	m = updated.(model)
	if !m.showHelp {
		t.Error("help not toggled on")
	}
	if !strings.Contains(m.View(), "play/pause") {
		t.Error("help text missing from view")
	}
	if m.viewport.Height != base-1 {
		t.Errorf("viewport height %d with help visible, want %d", m.viewport.Height, base-1)
	}
	if lines := strings.Count(m.View(), "\n") + 1; lines > m.height {
		t.Errorf("view is %d lines, terminal is %d", lines, m.height)
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	m = updated.(model)
	if m.viewport.Height != base {
		t.Errorf("viewport height %d after help hidden, want %d", m.viewport.Height, base)
	}
}

func TestModelVoiceCycleKey(t *testing.T) {
	m := sizedModel(t, Config{})
	before := m.session.Snapshot().Voice
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'v'}})
	if cmd == nil {
		t.Fatal("expected voice command")
	}
	if msg := cmd(); msg != nil {
		t.Fatalf("voice change failed: %v", msg)
	}
	if after := m.session.Snapshot().Voice; after == before || after == "" {
		t.Errorf("voice did not advance: %q -> %q", before, after)
	}
}

func TestRenderPlainTextFallback(t *testing.T) {
	m := sizedModel(t, Config{GlamourEnabled: false})
	if !strings.Contains(m.render(), "hello") {
		t.Error("plain rendering dropped content")
	}
}

func TestStatusBarShowsProgress(t *testing.T) {
	m := sizedModel(t, Config{})
	updated, _ := m.Update(speak.ParagraphChangedMsg{Index: 2, Total: 5})
	m = updated.(model)
	if !strings.Contains(m.statusBarView(), "3/5") {
		t.Errorf("progress missing from status bar: %q", m.statusBarView())
	}
}
