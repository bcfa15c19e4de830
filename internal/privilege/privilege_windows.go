//go:build windows

package privilege

import "golang.org/x/sys/windows"

// processElevated reports whether the process token carries elevation.
func processElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
