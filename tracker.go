package arena

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"unsafe"
)

// Tracker is told about every allocation and free a MemoryArena performs.
type Tracker interface {
	OnAllocation(p unsafe.Pointer, size uintptr, site Site)
	OnFree(p unsafe.Pointer)
	// Outstanding is the number of live allocations, 0 when not tracked.
	Outstanding() int
}

// LeakReporter is implemented by trackers that can list live allocations.
type LeakReporter interface {
	Leaks() []Allocation
}

// siteRecorder is implemented by trackers that want call sites. Arenas skip
// the runtime.Caller lookup for everything else.
type siteRecorder interface {
	RecordsSites() bool
}

// Site is the source location an allocation was requested from.
type Site struct {
	File     string
	Line     int
	Function string
}

func (s Site) String() string {
	if s.File == "" {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d %s", s.File, s.Line, s.Function)
}

func callerSite(skip int) Site {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return Site{}
	}
	s := Site{File: filepath.Base(file), Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		s.Function = fn.Name()
	}
	return s
}

// Allocation describes one live allocation.
type Allocation struct {
	Ptr  unsafe.Pointer
	Size uintptr
	Site Site
}

// NoTracking ignores everything.
type NoTracking struct{}

func (NoTracking) OnAllocation(unsafe.Pointer, uintptr, Site) {}
func (NoTracking) OnFree(unsafe.Pointer)                      {}
func (NoTracking) Outstanding() int                           { return 0 }

// SimpleTracking counts live allocations.
type SimpleTracking struct {
	live  int
	total int
}

func NewSimpleTracking() *SimpleTracking { return &SimpleTracking{} }

func (t *SimpleTracking) OnAllocation(unsafe.Pointer, uintptr, Site) {
	t.live++
	t.total++
}

func (t *SimpleTracking) OnFree(unsafe.Pointer) { t.live-- }

func (t *SimpleTracking) Outstanding() int { return t.live }

// Total is the number of allocations ever recorded.
func (t *SimpleTracking) Total() int { return t.total }

// HasOutstanding reports whether any allocation was not freed.
func (t *SimpleTracking) HasOutstanding() bool { return t.live != 0 }

// SiteTracking remembers every live allocation with its call site, so leaks
// can be listed at shutdown.
type SiteTracking struct {
	live map[unsafe.Pointer]Allocation
}

func NewSiteTracking() *SiteTracking {
	return &SiteTracking{live: make(map[unsafe.Pointer]Allocation)}
}

func (t *SiteTracking) RecordsSites() bool { return true }

func (t *SiteTracking) OnAllocation(p unsafe.Pointer, size uintptr, site Site) {
	t.live[p] = Allocation{Ptr: p, Size: size, Site: site}
}

func (t *SiteTracking) OnFree(p unsafe.Pointer) { delete(t.live, p) }

func (t *SiteTracking) Outstanding() int { return len(t.live) }

// Leaks returns the live allocations ordered by call site.
func (t *SiteTracking) Leaks() []Allocation {
	out := make([]Allocation, 0, len(t.live))
	for _, a := range t.live {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Site.File != out[j].Site.File {
			return out[i].Site.File < out[j].Site.File
		}
		if out[i].Site.Line != out[j].Site.Line {
			return out[i].Site.Line < out[j].Site.Line
		}
		return uintptr(out[i].Ptr) < uintptr(out[j].Ptr)
	})
	return out
}

var (
	_ Tracker = NoTracking{}
	_ Tracker = (*SimpleTracking)(nil)
	_ Tracker = (*SiteTracking)(nil)
)
