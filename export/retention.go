package export

import "time"

// RetentionRules configures how long stored export files stay downloadable.
type RetentionRules struct {
	DefaultTTL time.Duration
	ByFormat   map[Format]time.Duration
}

// TTL returns the retention for a format. Zero means files never expire.
func (r RetentionRules) TTL(format Format) time.Duration {
	if ttl, ok := r.ByFormat[NormalizeFormat(format)]; ok {
		return ttl
	}
	return r.DefaultTTL
}
