//go:build windows

package hotkey

import (
	"context"
	"time"

	"golang.org/x/term"
)

// WatchResize polls the width of fd until ctx is done; Windows has no SIGWINCH.
func WatchResize(ctx context.Context, fd int, set func(cols int)) {
	report := func() {
		if cols, _, err := term.GetSize(fd); err == nil {
			set(cols)
		}
	}
	report()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				report()
			}
		}
	}()
}
