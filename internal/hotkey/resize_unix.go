//go:build !windows

package hotkey

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"
)

// WatchResize reports the width of fd now and after every SIGWINCH until ctx is done.
func WatchResize(ctx context.Context, fd int, set func(cols int)) {
	report := func() {
		if cols, _, err := term.GetSize(fd); err == nil {
			set(cols)
		}
	}
	report()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGWINCH)
	go func() {
		defer signal.Stop(sig)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sig:
				report()
			}
		}
	}()
}
