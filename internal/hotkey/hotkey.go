// Package hotkey reads single key presses from the controlling terminal.
package hotkey

import (
	"fmt"
	"strings"
)

// Manager defines the interface for terminal key handling
type Manager interface {
	Register(accel string, callback func()) error
	Unregister(accel string) error
	// Suspend hands the terminal back, stops the process and re-enters raw mode on resume.
	Suspend() error
	Close() error
}

const (
	keyCtrlC  = 0x03
	keyCtrlD  = 0x04
	keyCtrlZ  = 0x1a
	keyEscape = 0x1b
)

var named = map[string]byte{
	"space":  ' ',
	"esc":    keyEscape,
	"escape": keyEscape,
	"ctrl+c": keyCtrlC,
	"ctrl+d": keyCtrlD,
	"ctrl+z": keyCtrlZ,
}

// ParseKey maps an accelerator such as "q", "space" or "ctrl+c" to the byte
// the terminal sends for it in raw mode.
func ParseKey(accel string) (byte, error) {
	a := strings.ToLower(strings.TrimSpace(accel))
	if b, ok := named[a]; ok {
		return b, nil
	}
	if strings.HasPrefix(a, "ctrl+") && len(a) == len("ctrl+")+1 {
		c := a[len(a)-1]
		if c >= 'a' && c <= 'z' {
			return c - 'a' + 1, nil
		}
	}
	if len(accel) == 1 && accel[0] >= 0x20 && accel[0] < 0x7f {
		return accel[0], nil
	}
	return 0, fmt.Errorf("unsupported key %q", accel)
}
