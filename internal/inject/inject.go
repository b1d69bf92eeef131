// Package inject hands the current segment path to other programs.
package inject

import "context"

// Injector defines the interface for text injection
type Injector interface {
	Copy(ctx context.Context, text string) error
}
