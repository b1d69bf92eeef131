//go:build !windows

package hotkey

import "syscall"

// suspendProcess stops the process group the way a shell's Ctrl-Z does.
// It returns once the process is continued.
func suspendProcess() error {
	return syscall.Kill(0, syscall.SIGTSTP)
}
