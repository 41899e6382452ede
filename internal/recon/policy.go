package recon

// Policy carries the reconciliation thresholds. The shipped values have no
// documented rationale beyond field experience, so they are configuration,
// not constants baked into the interpreter.
type Policy struct {
	// AcceptEligible is the confidence above which a match is treated as
	// accept-eligible by the review surface.
	AcceptEligible float64
	// AlreadySynced is the confidence at or above which an accepted match
	// is assumed to already exist on the provider side and is skipped by
	// the sync queue.
	AlreadySynced float64
	// FallbackConfidence is assigned to placeholder matches when the AI
	// reply cannot be parsed at all.
	FallbackConfidence float64
}

func DefaultPolicy() Policy {
	return Policy{
		AcceptEligible:     0.7,
		AlreadySynced:      0.9,
		FallbackConfidence: 0.3,
	}
}

// withDefaults fills zero fields so a partially-populated config can't
// silently disable a threshold.
func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.AcceptEligible <= 0 {
		p.AcceptEligible = d.AcceptEligible
	}
	if p.AlreadySynced <= 0 {
		p.AlreadySynced = d.AlreadySynced
	}
	if p.FallbackConfidence <= 0 {
		p.FallbackConfidence = d.FallbackConfidence
	}
	return p
}
