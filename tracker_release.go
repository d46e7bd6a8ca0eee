//go:build arena_release

package arena

type DefaultTracker = NoTracking

func NewDefaultTracker() DefaultTracker { return NoTracking{} }
