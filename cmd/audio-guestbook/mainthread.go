//go:build hotkey

package main

import "golang.design/x/hotkey/mainthread"

// runOnMainThread runs fn while the main thread serves hotkey registration,
// which macOS requires.
func runOnMainThread(fn func()) {
	mainthread.Init(fn)
}
