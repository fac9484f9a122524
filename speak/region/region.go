// Package region resolves which service region a speech credential can use.
package region

// Reason explains how a resolution concluded.
type Reason int

const (
	// ReasonOK means a probe confirmed the returned region.
	ReasonOK Reason = iota
	// ReasonRateLimited means a probe was rate limited and the sequence
	// aborted.
	ReasonRateLimited
	// ReasonNotFound means no candidate region accepted the credential.
	ReasonNotFound
	// ReasonLocked means the user pinned the returned region; it was not
	// probed.
	ReasonLocked
	// ReasonCached means a previously resolved region was reused without
	// probing.
	ReasonCached
	// ReasonNoKey means no credential was supplied.
	ReasonNoKey
)

// String returns the string representation of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonOK:
		return "ok"
	case ReasonRateLimited:
		return "rate_limited"
	case ReasonNotFound:
		return "not_found"
	case ReasonLocked:
		return "locked"
	case ReasonCached:
		return "cached"
	case ReasonNoKey:
		return "no_key"
	default:
		return "unknown"
	}
}

// Result is the outcome of one resolution. It is never mutated after
// creation.
type Result struct {
	Region string // Usable region, or "" when Reason is a failure
	Reason Reason
}

// Usable reports whether the result carries a region the caller can speak
// against.
func (r Result) Usable() bool {
	return r.Region != "" &&
		(r.Reason == ReasonOK || r.Reason == ReasonLocked || r.Reason == ReasonCached)
}

// ProbeStatus classifies the outcome of a single region probe.
type ProbeStatus int

const (
	// StatusAvailable means the region accepted the credential.
	StatusAvailable ProbeStatus = iota
	// StatusUnauthorized means the region rejected the credential.
	StatusUnauthorized
	// StatusRateLimited means the provider throttled the probe.
	StatusRateLimited
	// StatusUnreachable means the probe could not reach the provider.
	StatusUnreachable
)

// Resource is the persisted (credential, region, locked) record. Locked
// implies a non-empty region.
type Resource struct {
	Credential string `json:"credential"`
	Region     string `json:"region"`
	Locked     bool   `json:"locked"`
}
