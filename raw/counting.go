package raw

// Counting wraps an Allocator and keeps allocation counters. It replaces a
// process wide allocation count with one owned by whoever holds the wrapper.
type Counting struct {
	next Allocator

	live      int
	total     int
	liveBytes int
}

// NewCounting wraps next. A nil next wraps the Go heap.
func NewCounting(next Allocator) *Counting {
	if next == nil {
		next = NewHeap()
	}
	return &Counting{next: next}
}

func (c *Counting) Allocate(size, align int) ([]byte, error) {
	b, err := c.next.Allocate(size, align)
	if err != nil {
		return nil, err
	}
	c.live++
	c.total++
	c.liveBytes += len(b)
	return b, nil
}

func (c *Counting) Reallocate(b []byte, size, align int) ([]byte, error) {
	nb, err := c.next.Reallocate(b, size, align)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		c.live++
		c.total++
	}
	c.liveBytes += len(nb) - len(b)
	return nb, nil
}

func (c *Counting) Free(b []byte) error {
	if err := c.next.Free(b); err != nil {
		return err
	}
	if len(b) > 0 {
		c.live--
		c.liveBytes -= len(b)
	}
	return nil
}

// Live is the number of regions allocated and not yet freed.
func (c *Counting) Live() int { return c.live }

// Total is the number of regions ever allocated.
func (c *Counting) Total() int { return c.total }

// LiveBytes is the size of all live regions.
func (c *Counting) LiveBytes() int { return c.liveBytes }
