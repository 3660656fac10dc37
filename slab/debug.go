package slab

import "fmt"

// DebugChecks enables invariant assertions on page-list membership
// (a page must be threaded into exactly one of empty/partial/full at
// a time). It panics on violation instead of letting state quietly
// corrupt, the Go stand-in for the original implementation's
// debug_assert! calls since Go has no separate debug build mode. Off
// by default; the invariant tests in this module turn it on.
var DebugChecks = false

func assertf(cond bool, format string, args ...interface{}) {
	if !DebugChecks || cond {
		return
	}
	panic(fmt.Sprintf(format, args...))
}
