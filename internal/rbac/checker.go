package rbac

import (
	"context"
	"strings"
)

type Checker struct {
	RoleCapabilities map[Role][]Capability
}

func NewChecker(rc map[Role][]Capability) *Checker {
	if rc == nil {
		rc = RoleCapabilities
	}
	return &Checker{RoleCapabilities: rc}
}

func (c *Checker) Has(role Role, capability Capability) bool {
	caps, ok := c.RoleCapabilities[role]
	if !ok {
		return false
	}
	for _, p := range caps {
		if matchCapability(p, capability) {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role Role, caps ...Capability) bool {
	for _, p := range caps {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

var defaultChecker = NewChecker(nil)

// HasCapability checks role against the default policy. Client code uses it
// to decide what to offer; the server enforces the same policy via Require.
func HasCapability(role Role, capability Capability) bool {
	return defaultChecker.Has(role, capability)
}

func matchCapability(pattern, capability Capability) bool {
	if pattern == "*" || pattern == capability {
		return true
	}
	p := string(pattern)
	if strings.HasSuffix(p, "*") {
		return strings.HasPrefix(string(capability), strings.TrimSuffix(p, "*"))
	}
	return false
}

// ---- role in context ----

type ctxKey struct{}

var ctxKeyRole = ctxKey{}

func WithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, ctxKeyRole, role)
}

func RoleFromContext(ctx context.Context) Role {
	if v, ok := ctx.Value(ctxKeyRole).(Role); ok {
		return v
	}
	return RoleNone
}
