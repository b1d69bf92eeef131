//go:build windows

package hotkey

func suspendProcess() error {
	return nil
}
