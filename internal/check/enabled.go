//go:build !arena_release

package check

// Enabled reports whether checks are compiled in.
const Enabled = true

// That fails when cond is false. expr describes the violated condition and
// may carry fmt verbs for args.
func That(cond bool, expr string, args ...any) {
	if !cond {
		fail(expr, args...)
	}
}

// Index fails unless 0 <= i < n.
func Index(i, n int) {
	if i < 0 || i >= n {
		fail("index %d out of range [0, %d)", i, n)
	}
}
