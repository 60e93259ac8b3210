//go:build !darwin || !cgo

package main

import "fmt"

func newWebViewWindow(url, title string) (uiWindow, error) {
	return nil, fmt.Errorf("embedded webview is only available on macOS builds with cgo; use the browser mode instead")
}
