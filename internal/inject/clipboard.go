package inject

import (
	"context"
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// ErrNothingToCopy is returned when no segment is being written.
var ErrNothingToCopy = errors.New("no segment is being recorded")

type clipboardInjector struct {
	write func(string) error
}

// New creates an injector backed by the system clipboard.
func New() Injector {
	return &clipboardInjector{write: clipboard.WriteAll}
}

// Copy places text on the clipboard.
func (c *clipboardInjector) Copy(ctx context.Context, text string) error {
	if text == "" {
		return ErrNothingToCopy
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if clipboard.Unsupported {
		return errors.New("clipboard is not available on this system")
	}
	if err := c.write(text); err != nil {
		return fmt.Errorf("copying to clipboard: %w", err)
	}
	return nil
}
