// internal/core/services/types.go
package services

import "time"

// FullViewCacheKey is the cache key for the machine-wide slot report.
const FullViewCacheKey = "inventory:full_view"

// FullViewCacheTTL bounds staleness of the cached report between
// invalidations.
const FullViewCacheTTL = 5 * time.Minute

// Options carries tuning knobs shared by the inventory services.
type Options struct {
	// MaxSlots caps the number of slots the machine may hold.
	MaxSlots int

	// Denominations is the coin/note set used for change breakdowns,
	// in currency minor units.
	Denominations []int64

	// LockDelay, when positive, inserts an artificial pause between lock
	// acquisition and validation inside every mutating unit of work. It
	// exists to widen race windows under test and must stay zero in
	// production configuration.
	LockDelay time.Duration
}

// pause sleeps for the configured lock delay, if any.
func (o Options) pause() {
	if o.LockDelay > 0 {
		time.Sleep(o.LockDelay)
	}
}
