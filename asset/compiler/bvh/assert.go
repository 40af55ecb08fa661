package bvh

import "fmt"

// Enables internal consistency checks. Tests turn this on.
var debugChecks = false

func assert(cond bool, format string, args ...interface{}) {
	if debugChecks && !cond {
		panic(fmt.Sprintf("bvh: assertion failed: "+format, args...))
	}
}
