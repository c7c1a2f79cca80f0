//go:build 386

package main

import "runtime"

// iSH (iOS) emulates x86 in user mode and slows down badly once the watcher,
// debounce timers and live queries run on several threads. Keep 386 builds
// on one.
func init() {
	runtime.GOMAXPROCS(1)
}
