package domain

import "time"

// DedupRecord is an identity that has been emitted for a source.
type DedupRecord struct {
	// SourceKey is the partition the record belongs to.
	SourceKey string

	// Identity is the emitted event identity.
	Identity string

	// FirstSeen is when the identity was first recorded.
	FirstSeen time.Time
}

// Expired reports whether the record falls outside policy's age bound at now.
func (r DedupRecord) Expired(policy RetentionPolicy, now time.Time) bool {
	return policy.MaxAge > 0 && now.Sub(r.FirstSeen) > policy.MaxAge
}
