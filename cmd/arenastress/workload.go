package main

import (
	"fmt"
	"math/bits"
	"math/rand"
	"os"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	arena "github.com/pavanmanishd/blockarena"
	"github.com/pavanmanishd/blockarena/arenametrics"
	"github.com/pavanmanishd/blockarena/block"
	"github.com/pavanmanishd/blockarena/container"
	"github.com/pavanmanishd/blockarena/raw"
)

// Workload describes one churn run. It can be loaded from YAML:
//
//	block:
//	  block_size: 16384
//	  reuse_factor: 2
//	  mmap: false
//	ops: 100000
//	max_size: 512
//	frames: 100
//	seed: 1
type Workload struct {
	Block        block.Config `yaml:"block" json:"block"`
	Ops          int          `yaml:"ops" json:"ops"`
	MaxSize      int          `yaml:"max_size" json:"max_size"`
	Frames       int          `yaml:"frames" json:"frames"`
	Seed         int64        `yaml:"seed" json:"seed"`
	AllocPercent int          `yaml:"alloc_percent" json:"alloc_percent"`
	ScratchChunk int          `yaml:"scratch_chunk" json:"scratch_chunk"`
}

func defaultWorkload() Workload {
	return Workload{
		Block: block.Config{
			BlockSize:   block.DefaultBlockSize,
			ReuseFactor: block.DefaultReuseFactor,
		},
		Ops:          100000,
		MaxSize:      512,
		Frames:       100,
		Seed:         1,
		AllocPercent: 60,
		ScratchChunk: 16 << 10,
	}
}

var (
	errInvalidWorkload = errors.New("invalid workload")
	errCorrupted       = errors.New("allocation contents overwritten")
)

// loadWorkload reads a YAML workload. Fields missing from the file keep
// their defaults.
func loadWorkload(path string) (Workload, error) {
	w := defaultWorkload()
	data, err := os.ReadFile(path)
	if err != nil {
		return w, errors.Wrapf(err, "read workload %q", path)
	}
	if err := yaml.Unmarshal(data, &w); err != nil {
		return w, errors.Wrapf(err, "parse workload %q", path)
	}
	return w, nil
}

func (w Workload) validate() error {
	switch {
	case w.Ops <= 0:
		return errors.Wrapf(errInvalidWorkload, "ops %d <= 0", w.Ops)
	case w.Frames <= 0:
		return errors.Wrapf(errInvalidWorkload, "frames %d <= 0", w.Frames)
	case w.MaxSize <= 0:
		return errors.Wrapf(errInvalidWorkload, "max size %d <= 0", w.MaxSize)
	case w.AllocPercent <= 0 || w.AllocPercent > 100:
		return errors.Wrapf(errInvalidWorkload, "alloc percent %d not in (0, 100]", w.AllocPercent)
	}
	return nil
}

// Result summarises a run.
type Result struct {
	Ops            int            `json:"ops"`
	Allocs         int            `json:"allocs"`
	Frees          int            `json:"frees"`
	TooLarge       int            `json:"too_large"`
	ReuseHits      int            `json:"reuse_hits"`
	PeakBlocks     int            `json:"peak_blocks"`
	FinalBlocks    int            `json:"final_blocks"`
	PeakLive       int            `json:"peak_live"`
	PeakFrameBytes int            `json:"peak_frame_bytes"`
	Utilization    float64        `json:"utilization"`
	RawAllocations int            `json:"raw_allocations"`
	RawLive        int            `json:"raw_live"`
	SizeClasses    map[string]int `json:"size_classes"`
	Duration       time.Duration  `json:"duration_ns"`
}

type liveAlloc struct {
	ptr  unsafe.Pointer
	size int
}

func (l liveAlloc) bytes() []byte { return unsafe.Slice((*byte)(l.ptr), l.size) }

func (l liveAlloc) fill() {
	b := l.bytes()
	for i := range b {
		b[i] = byte(l.size)
	}
}

func (l liveAlloc) intact() bool {
	for _, c := range l.bytes() {
		if c != byte(l.size) {
			return false
		}
	}
	return true
}

// sizeClass rounds n up to a power of two.
func sizeClass(n int) int {
	return 1 << bits.Len(uint(n-1))
}

var aligns = []uintptr{8, 16, 32, 64}

// runWorkload churns a block backed arena. Every frame allocates and frees
// at random, records the frame's allocation sizes in a list kept in a
// linear scratch arena, then rewinds the scratch arena. At the end every
// live allocation is freed, excess blocks are dropped and both arenas are
// closed. metrics may be nil.
func runWorkload(w Workload, log logrus.FieldLogger, metrics *arenametrics.Metrics) (Result, error) {
	if err := w.validate(); err != nil {
		return Result{}, err
	}
	start := time.Now()
	rng := rand.New(rand.NewSource(w.Seed))

	var base raw.Allocator = raw.NewHeap()
	if w.Block.Mmap {
		base = raw.NewMmap()
	}
	counting := raw.NewCounting(base)

	opts := append(w.Block.Options(), block.WithRawAllocator(counting), block.WithLogger(log))
	b, err := block.New(opts...)
	if err != nil {
		return Result{}, errors.Wrap(err, "create block allocator")
	}
	mem := arena.NewMemoryArena(b, arena.NewSiteTracking(), arena.WithLogger(log))

	lin, err := arena.NewLinearAllocator(w.ScratchChunk, counting, arena.WithLinearLogger(log))
	if err != nil {
		b.Release()
		return Result{}, errors.Wrap(err, "create scratch allocator")
	}
	scratch := arena.NewMemoryArena(lin, arena.NoTracking{}, arena.WithLogger(log))

	if metrics != nil {
		metrics.Add("main", mem)
		metrics.Add("scratch", scratch)
	}

	res := Result{SizeClasses: map[string]int{}}
	live := container.NewArray[liveAlloc]()
	classes := container.NewMap[int, int]()
	perFrame := max(w.Ops/w.Frames, 1)

	for f := 0; f < w.Frames; f++ {
		sizes := container.NewLinkedListWith[int32](container.NewArenaStorage[container.Node[int32]](scratch))

		for i := 0; i < perFrame; i++ {
			res.Ops++
			if live.Len() == 0 || rng.Intn(100) < w.AllocPercent {
				size := 1 + rng.Intn(w.MaxSize)
				p, err := mem.Allocate(uintptr(size), aligns[rng.Intn(len(aligns))], 0)
				if errors.Is(err, block.ErrAllocationTooLarge) {
					res.TooLarge++
					continue
				}
				if err != nil {
					return res, err
				}
				la := liveAlloc{ptr: p, size: size}
				la.fill()
				if _, err := live.Add(la); err != nil {
					return res, err
				}
				n, _ := classes.Get(sizeClass(size))
				if _, err := classes.Insert(sizeClass(size), n+1); err != nil {
					return res, err
				}
				if err := sizes.PushTail(int32(size)); err != nil {
					return res, errors.Wrap(err, "record frame allocation")
				}
				res.Allocs++
				res.PeakLive = max(res.PeakLive, live.Len())
				continue
			}

			j := rng.Intn(live.Len())
			la := live.At(j)
			if !la.intact() {
				return res, errors.Wrapf(errCorrupted, "%d byte allocation at %p", la.size, la.ptr)
			}
			mem.Free(la.ptr)
			last := live.Len() - 1
			live.Set(j, live.At(last))
			live.RemoveAt(last)
			res.Frees++
		}

		frameBytes := 0
		for sizes.Len() > 0 {
			frameBytes += int(sizes.PopHead())
		}
		res.PeakFrameBytes = max(res.PeakFrameBytes, frameBytes)
		res.PeakBlocks = max(res.PeakBlocks, b.NumBlocks())
		if metrics != nil {
			metrics.Update()
		}
		lin.Reset()

		log.WithField("action", "frame").
			WithField("frame", f).
			WithField("live", live.Len()).
			WithField("blocks", b.NumBlocks()).
			WithField("frame_bytes", frameBytes).
			Debug("frame done")
	}

	stats := b.Stats()
	res.ReuseHits = stats.ReuseHits
	res.Utilization = stats.Utilization()

	for _, la := range live.All() {
		if !la.intact() {
			return res, errors.Wrapf(errCorrupted, "%d byte allocation at %p", la.size, la.ptr)
		}
		mem.Free(la.ptr)
	}
	live.Clear()
	b.FreeExcessBlocks()
	res.FinalBlocks = b.NumBlocks()

	for class, n := range classes.All() {
		res.SizeClasses[fmt.Sprintf("<=%d", class)] = n
	}
	if metrics != nil {
		metrics.Update()
	}

	if err := mem.Close(); err != nil {
		return res, err
	}
	if err := scratch.Close(); err != nil {
		return res, err
	}
	res.RawAllocations = counting.Total()
	res.RawLive = counting.Live()
	res.Duration = time.Since(start)
	return res, nil
}
