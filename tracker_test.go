package arena

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func ptrAt(buf []byte, i int) unsafe.Pointer { return unsafe.Pointer(&buf[i]) }

func TestNoTracking(t *testing.T) {
	var tr NoTracking
	buf := make([]byte, 8)
	tr.OnAllocation(ptrAt(buf, 0), 8, Site{})
	assert.Zero(t, tr.Outstanding())
	tr.OnFree(ptrAt(buf, 0))
	assert.Zero(t, tr.Outstanding())
}

func TestSimpleTracking(t *testing.T) {
	tr := NewSimpleTracking()
	buf := make([]byte, 8)

	tr.OnAllocation(ptrAt(buf, 0), 1, Site{})
	tr.OnAllocation(ptrAt(buf, 4), 1, Site{})
	assert.Equal(t, 2, tr.Outstanding())
	assert.True(t, tr.HasOutstanding())

	tr.OnFree(ptrAt(buf, 0))
	tr.OnFree(ptrAt(buf, 4))
	assert.Zero(t, tr.Outstanding())
	assert.False(t, tr.HasOutstanding())
	assert.Equal(t, 2, tr.Total())
}

func TestSiteTracking(t *testing.T) {
	tr := NewSiteTracking()
	assert.True(t, tr.RecordsSites())

	buf := make([]byte, 32)
	tr.OnAllocation(ptrAt(buf, 16), 4, Site{File: "b.go", Line: 3})
	tr.OnAllocation(ptrAt(buf, 8), 2, Site{File: "a.go", Line: 9})
	tr.OnAllocation(ptrAt(buf, 0), 1, Site{File: "a.go", Line: 9})
	tr.OnAllocation(ptrAt(buf, 24), 8, Site{File: "a.go", Line: 1})
	assert.Equal(t, 4, tr.Outstanding())

	tr.OnFree(ptrAt(buf, 24))
	leaks := tr.Leaks()
	assert.Equal(t, []Allocation{
		{Ptr: ptrAt(buf, 0), Size: 1, Site: Site{File: "a.go", Line: 9}},
		{Ptr: ptrAt(buf, 8), Size: 2, Site: Site{File: "a.go", Line: 9}},
		{Ptr: ptrAt(buf, 16), Size: 4, Site: Site{File: "b.go", Line: 3}},
	}, leaks)
}

func TestSiteString(t *testing.T) {
	assert.Equal(t, "unknown", Site{}.String())
	assert.Equal(t, "x.go:12 pkg.fn", Site{File: "x.go", Line: 12, Function: "pkg.fn"}.String())
}

func TestCallerSite(t *testing.T) {
	s := callerSite(1)
	assert.Equal(t, "tracker_test.go", s.File)
	assert.Contains(t, s.Function, "TestCallerSite")
	assert.Positive(t, s.Line)
}
