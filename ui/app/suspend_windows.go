//go:build windows

package app

import "github.com/gdamore/tcell/v2"

// suspendApp does nothing, since job control is not available.
func suspendApp(tcell.Screen) {}
