//go:build !arena_release

package arena

// DefaultTracker is the tracking policy of the current build: counting in
// debug builds, nothing under the arena_release tag.
type DefaultTracker = *SimpleTracking

func NewDefaultTracker() DefaultTracker { return NewSimpleTracking() }
