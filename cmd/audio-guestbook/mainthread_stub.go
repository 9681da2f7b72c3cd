//go:build !hotkey

package main

func runOnMainThread(fn func()) {
	fn()
}
