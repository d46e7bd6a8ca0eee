package block

import (
	"github.com/sirupsen/logrus"

	"github.com/pavanmanishd/blockarena/raw"
)

// Option configures an Allocator.
type Option func(*Allocator)

// WithBlockSize sets the size of each reserved block. Values <= 0 keep
// DefaultBlockSize.
func WithBlockSize(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.blockSize = n
		}
	}
}

// WithReuseFactor sets how much larger than a request a recycled region may
// be. Values < 1 keep DefaultReuseFactor.
func WithReuseFactor(f int) Option {
	return func(a *Allocator) {
		if f >= 1 {
			a.reuseFactor = uintptr(f)
		}
	}
}

// WithRawAllocator sets where blocks come from. Defaults to the Go heap.
func WithRawAllocator(r raw.Allocator) Option {
	return func(a *Allocator) {
		a.raw = r
	}
}

// WithLogger sets the logger for warnings and raw allocation failures.
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Allocator) {
		if l != nil {
			a.logger = l
		}
	}
}

// Config is the serialisable form of the allocator options.
type Config struct {
	BlockSize   int  `yaml:"block_size" json:"block_size"`
	ReuseFactor int  `yaml:"reuse_factor" json:"reuse_factor"`
	Mmap        bool `yaml:"mmap" json:"mmap"`
}

// Options converts c into allocator options.
func (c Config) Options() []Option {
	opts := []Option{WithBlockSize(c.BlockSize), WithReuseFactor(c.ReuseFactor)}
	if c.Mmap {
		opts = append(opts, WithRawAllocator(raw.NewMmap()))
	}
	return opts
}
