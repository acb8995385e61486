package control

import (
	"context"
	"fmt"
	"time"

	"dgop/viewer"
)

// Hierarchy exposes the viewer's loaded structures.
type Hierarchy interface {
	Structures() []*viewer.Structure
}

// WaitForStructure checks the hierarchy every interval until it holds at
// least one structure, then stops. maxPolls > 0 bounds the number of checks.
func WaitForStructure(ctx context.Context, h Hierarchy, interval time.Duration, maxPolls int) (*viewer.Structure, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for polls := 0; ; {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		if s := h.Structures(); len(s) > 0 {
			return s[0], nil
		}
		polls++
		if maxPolls > 0 && polls >= maxPolls {
			return nil, fmt.Errorf("%w after %d polls", viewer.ErrNoStructure, polls)
		}
	}
}
