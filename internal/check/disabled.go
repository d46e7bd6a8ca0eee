//go:build arena_release

package check

const Enabled = false

func That(bool, string, ...any) {}

func Index(int, int) {}
