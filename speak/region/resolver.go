package region

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

// DefaultCandidates is the static probe order used when the caller has no
// preference. The preferred region, when supplied, is always tried first.
var DefaultCandidates = []string{
	"eastus",
	"westus",
	"westeurope",
	"northeurope",
	"southeastasia",
	"uksouth",
	"australiaeast",
}

const (
	// DefaultProbeTimeout bounds each individual region probe.
	DefaultProbeTimeout = 3500 * time.Millisecond
	// DefaultProbeDelay spaces consecutive probes to avoid hammering the
	// provider.
	DefaultProbeDelay = 140 * time.Millisecond
)

// Prober issues one lightweight authenticated request against a region.
type Prober interface {
	Probe(ctx context.Context, credential, region string) (ProbeStatus, error)
}

// ResourceStore persists the resolved (credential, region, locked) record
// between sessions.
type ResourceStore interface {
	Load() (Resource, bool, error)
	Save(Resource) error
}

// Resolver finds a region a credential can use. Lookups for the same
// credential are coalesced: while a probe sequence is in flight, concurrent
// callers share its result.
type Resolver struct {
	prober     Prober
	store      ResourceStore
	candidates []string

	probeTimeout time.Duration
	probeDelay   time.Duration

	group singleflight.Group
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithCandidates overrides the static candidate list.
func WithCandidates(regions []string) ResolverOption {
	return func(r *Resolver) { r.candidates = regions }
}

// WithProbeTimeout overrides the per-probe timeout.
func WithProbeTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.probeTimeout = d }
}

// WithProbeDelay overrides the delay between consecutive probes.
func WithProbeDelay(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.probeDelay = d }
}

// NewResolver creates a resolver. The store may be nil, in which case every
// resolution probes from scratch and nothing is remembered.
func NewResolver(prober Prober, store ResourceStore, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		prober:       prober,
		store:        store,
		candidates:   DefaultCandidates,
		probeTimeout: DefaultProbeTimeout,
		probeDelay:   DefaultProbeDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns a usable region for the credential.
//
// Three fast paths skip probing entirely: an empty credential (ReasonNoKey),
// a user-pinned region (ReasonLocked), and a previously resolved region for
// the same credential (ReasonCached). Otherwise candidates are probed in
// order, preferred region first; the first success wins, a rate-limited
// response aborts the whole sequence.
func (r *Resolver) Resolve(ctx context.Context, credential, preferred string) (Result, error) {
	if credential == "" {
		return Result{Reason: ReasonNoKey}, nil
	}

	if r.store != nil {
		res, ok, err := r.store.Load()
		if err != nil {
			log.Warn("could not read speech resource store", "err", err)
		} else if ok && res.Credential == credential {
			if res.Locked && res.Region != "" {
				return Result{Region: res.Region, Reason: ReasonLocked}, nil
			}
			if res.Region != "" {
				return Result{Region: res.Region, Reason: ReasonCached}, nil
			}
		}
	}

	v, err, _ := r.group.Do(credential, func() (interface{}, error) {
		return r.probeSequence(ctx, credential, preferred)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// probeSequence tries each candidate once and returns the first usable
// region.
func (r *Resolver) probeSequence(ctx context.Context, credential, preferred string) (Result, error) {
	candidates := orderCandidates(preferred, r.candidates)

	for i, candidate := range candidates {
		if i > 0 {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(r.probeDelay):
			}
		}

		status, err := r.probe(ctx, credential, candidate)
		switch status {
		case StatusAvailable:
			log.Debug("region probe succeeded", "region", candidate, "attempt", i+1)
			r.remember(credential, candidate)
			return Result{Region: candidate, Reason: ReasonOK}, nil
		case StatusRateLimited:
			log.Warn("region probe rate limited, aborting", "region", candidate)
			return Result{Reason: ReasonRateLimited}, nil
		default:
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			log.Debug("region probe failed", "region", candidate, "status", int(status), "err", err)
		}
	}

	return Result{Reason: ReasonNotFound}, nil
}

func (r *Resolver) probe(ctx context.Context, credential, candidate string) (ProbeStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()
	return r.prober.Probe(ctx, credential, candidate)
}

// remember persists a successful resolution for reuse by later sessions.
func (r *Resolver) remember(credential, resolved string) {
	if r.store == nil {
		return
	}
	err := r.store.Save(Resource{Credential: credential, Region: resolved})
	if err != nil {
		log.Warn("could not persist resolved region", "region", resolved, "err", err)
	}
}

// orderCandidates puts the preferred region first and drops duplicates.
func orderCandidates(preferred string, candidates []string) []string {
	out := make([]string, 0, len(candidates)+1)
	seen := make(map[string]bool, len(candidates)+1)
	if preferred != "" {
		out = append(out, preferred)
		seen[preferred] = true
	}
	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}
		out = append(out, c)
		seen[c] = true
	}
	return out
}
