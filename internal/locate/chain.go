// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package locate

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Chain is a Capability that asks its capabilities in order and returns the first fix. All
// capabilities share the deadline of the request. A permission denial ends the chain, since the
// user declined location access as a whole.
type Chain struct {
	capabilities []Capability
}

// NewChain returns a Chain of the given capabilities.
func NewChain(capabilities ...Capability) *Chain {
	return &Chain{capabilities: capabilities}
}

// Name returns the names of all capabilities in the chain.
func (c *Chain) Name() string {
	names := make([]string, 0, len(c.capabilities))
	for _, capability := range c.capabilities {
		names = append(names, capability.Name())
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// RequestFix implements the Capability interface. If every capability is unsupported, the chain
// is unsupported. Otherwise the first supported failure is returned.
func (c *Chain) RequestFix(ctx context.Context, opts Options) (Fix, error) {
	var firstErr error
	for _, capability := range c.capabilities {
		if err := ctx.Err(); err != nil {
			return Fix{}, err
		}
		fix, err := capability.RequestFix(ctx, opts)
		if err == nil {
			if fix.Source == "" {
				fix.Source = capability.Name()
			}
			return fix, nil
		}
		if errors.Is(err, ErrPermissionDenied) {
			return Fix{}, err
		}
		if errors.Is(err, ErrUnsupported) {
			continue
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", capability.Name(), err)
		}
	}
	if firstErr != nil {
		return Fix{}, firstErr
	}
	return Fix{}, ErrUnsupported
}
