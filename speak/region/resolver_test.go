package region

import (
	"context"
	"sync"
	"testing"
)

type fakeProber struct {
	mu       sync.Mutex
	statuses map[string]ProbeStatus // region -> status; missing means unreachable
	probed   []string
}

func (p *fakeProber) Probe(_ context.Context, _, region string) (ProbeStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probed = append(p.probed, region)
	status, ok := p.statuses[region]
	if !ok {
		return StatusUnreachable, context.DeadlineExceeded
	}
	return status, nil
}

func (p *fakeProber) probeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.probed)
}

type fakeStore struct {
	mu    sync.Mutex
	res   Resource
	saved bool
}

func (s *fakeStore) Load() (Resource, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.res, s.saved, nil
}

func (s *fakeStore) Save(res Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.res = res
	s.saved = true
	return nil
}

func newTestResolver(prober Prober, store ResourceStore, candidates ...string) *Resolver {
	return NewResolver(prober, store,
		WithCandidates(candidates),
		WithProbeDelay(0),
	)
}

func TestResolveEmptyCredential(t *testing.T) {
	prober := &fakeProber{}
	r := newTestResolver(prober, nil, "r1")

	result, err := r.Resolve(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Reason != ReasonNoKey {
		t.Errorf("expected ReasonNoKey, got %v", result.Reason)
	}
	if prober.probeCount() != 0 {
		t.Errorf("expected no probes, got %d", prober.probeCount())
	}
}

func TestResolveFirstCandidateWins(t *testing.T) {
	prober := &fakeProber{statuses: map[string]ProbeStatus{"r1": StatusAvailable}}
	store := &fakeStore{}
	r := newTestResolver(prober, store, "r1", "r2")

	result, err := r.Resolve(context.Background(), "key", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Region != "r1" || result.Reason != ReasonOK {
		t.Errorf("unexpected result: %+v", result)
	}
	if prober.probeCount() != 1 {
		t.Errorf("expected 1 probe, got %d", prober.probeCount())
	}
	if !store.saved || store.res.Region != "r1" || store.res.Credential != "key" {
		t.Errorf("resolution not persisted: %+v", store.res)
	}
}

func TestResolveSkipsRejectedRegions(t *testing.T) {
	// The credential belongs to r2; r1 answers 403.
	prober := &fakeProber{statuses: map[string]ProbeStatus{
		"r1": StatusUnauthorized,
		"r2": StatusAvailable,
	}}
	r := newTestResolver(prober, nil, "r1", "r2", "r3")

	result, err := r.Resolve(context.Background(), "key", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Region != "r2" || result.Reason != ReasonOK {
		t.Errorf("unexpected result: %+v", result)
	}
	if prober.probeCount() != 2 {
		t.Errorf("expected exactly 2 probes, got %d: %v", prober.probeCount(), prober.probed)
	}
}

func TestResolvePreferredRegionFirst(t *testing.T) {
	prober := &fakeProber{statuses: map[string]ProbeStatus{"r3": StatusAvailable}}
	r := newTestResolver(prober, nil, "r1", "r2", "r3")

	result, err := r.Resolve(context.Background(), "key", "r3")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Region != "r3" {
		t.Errorf("expected preferred region, got %+v", result)
	}
	if prober.probeCount() != 1 {
		t.Errorf("preferred region not probed first: %v", prober.probed)
	}
}

func TestResolveRateLimitAbortsSequence(t *testing.T) {
	prober := &fakeProber{statuses: map[string]ProbeStatus{
		"r1": StatusRateLimited,
		"r2": StatusAvailable,
	}}
	r := newTestResolver(prober, nil, "r1", "r2")

	result, err := r.Resolve(context.Background(), "key", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Reason != ReasonRateLimited {
		t.Errorf("expected ReasonRateLimited, got %v", result.Reason)
	}
	if prober.probeCount() != 1 {
		t.Errorf("rate limit must abort the whole sequence, got %d probes", prober.probeCount())
	}
}

func TestResolveExhaustedCandidates(t *testing.T) {
	prober := &fakeProber{statuses: map[string]ProbeStatus{
		"r1": StatusUnauthorized,
		"r2": StatusUnauthorized,
	}}
	r := newTestResolver(prober, nil, "r1", "r2")

	result, err := r.Resolve(context.Background(), "key", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Reason != ReasonNotFound {
		t.Errorf("expected ReasonNotFound, got %v", result.Reason)
	}
}

func TestResolveCachedRegionSkipsProbing(t *testing.T) {
	prober := &fakeProber{}
	store := &fakeStore{res: Resource{Credential: "key", Region: "r2"}, saved: true}
	r := newTestResolver(prober, store, "r1", "r2")

	result, err := r.Resolve(context.Background(), "key", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Region != "r2" || result.Reason != ReasonCached {
		t.Errorf("unexpected result: %+v", result)
	}
	if prober.probeCount() != 0 {
		t.Errorf("cached resolution must not probe, got %d", prober.probeCount())
	}
}

func TestResolveCachedRegionOtherCredentialIgnored(t *testing.T) {
	prober := &fakeProber{statuses: map[string]ProbeStatus{"r1": StatusAvailable}}
	store := &fakeStore{res: Resource{Credential: "old-key", Region: "r2"}, saved: true}
	r := newTestResolver(prober, store, "r1")

	result, err := r.Resolve(context.Background(), "new-key", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Region != "r1" || result.Reason != ReasonOK {
		t.Errorf("stale cache entry must be ignored: %+v", result)
	}
}

func TestResolveLockedRegion(t *testing.T) {
	prober := &fakeProber{}
	store := &fakeStore{res: Resource{Credential: "key", Region: "r9", Locked: true}, saved: true}
	r := newTestResolver(prober, store, "r1", "r2")

	result, err := r.Resolve(context.Background(), "key", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Region != "r9" || result.Reason != ReasonLocked {
		t.Errorf("unexpected result: %+v", result)
	}
	if prober.probeCount() != 0 {
		t.Errorf("locked region must not probe, got %d", prober.probeCount())
	}
}

func TestResolveContextCancelled(t *testing.T) {
	prober := &fakeProber{}
	r := newTestResolver(prober, nil, "r1", "r2", "r3")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Resolve(ctx, "key", ""); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestOrderCandidates(t *testing.T) {
	got := orderCandidates("r2", []string{"r1", "r2", "r3"})
	want := []string{"r2", "r1", "r3"}
	if len(got) != len(want) {
		t.Fatalf("orderCandidates = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("orderCandidates = %v, want %v", got, want)
		}
	}
}

func TestReasonString(t *testing.T) {
	tests := []struct {
		reason Reason
		want   string
	}{
		{ReasonOK, "ok"},
		{ReasonRateLimited, "rate_limited"},
		{ReasonNotFound, "not_found"},
		{ReasonLocked, "locked"},
		{ReasonCached, "cached"},
		{ReasonNoKey, "no_key"},
	}
	for _, tt := range tests {
		if got := tt.reason.String(); got != tt.want {
			t.Errorf("Reason(%d).String() = %q, want %q", tt.reason, got, tt.want)
		}
	}
}

func TestResultUsable(t *testing.T) {
	usable := []Reason{ReasonOK, ReasonLocked, ReasonCached}
	for _, reason := range usable {
		if !(Result{Region: "r1", Reason: reason}).Usable() {
			t.Errorf("expected %v to be usable", reason)
		}
	}
	for _, reason := range []Reason{ReasonRateLimited, ReasonNotFound, ReasonNoKey} {
		if (Result{Reason: reason}).Usable() {
			t.Errorf("expected %v to be unusable", reason)
		}
	}
}
