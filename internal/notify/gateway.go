// Package notify delivers reminder notifications and answers permission queries.
package notify

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/calfstretch/internal/config"
)

// Permission is the notification capability state.
type Permission string

const (
	PermissionUnknown Permission = "unknown"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Gateway is the notification capability consumed by the reminder scheduler.
// Emit is fire-and-forget: delivery failures are logged, never returned.
type Gateway interface {
	QueryPermission(ctx context.Context) Permission
	RequestPermission(ctx context.Context) Permission
	Emit(ctx context.Context, title, body string)
}

// permissionState answers permission queries from the configured policy. With
// the prompt policy the answer is unknown until a request resolves it.
type permissionState struct {
	mu       sync.Mutex
	policy   config.PermissionPolicy
	resolved Permission
	probe    func(ctx context.Context) bool
}

func newPermissionState(policy config.PermissionPolicy, probe func(context.Context) bool) *permissionState {
	return &permissionState{policy: policy, resolved: PermissionUnknown, probe: probe}
}

func (p *permissionState) query() Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.policy {
	case config.PermissionGranted:
		return PermissionGranted
	case config.PermissionDenied:
		return PermissionDenied
	default:
		return p.resolved
	}
}

func (p *permissionState) request(ctx context.Context) Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.policy {
	case config.PermissionGranted:
		return PermissionGranted
	case config.PermissionDenied:
		return PermissionDenied
	}
	if p.resolved == PermissionUnknown {
		if p.probe == nil || p.probe(ctx) {
			p.resolved = PermissionGranted
		} else {
			p.resolved = PermissionDenied
		}
	}
	return p.resolved
}

// SetPolicy replaces the policy, e.g. after a configuration reload. Switching
// to prompt forgets any earlier answer.
func (p *permissionState) SetPolicy(policy config.PermissionPolicy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if policy != p.policy && policy == config.PermissionPrompt {
		p.resolved = PermissionUnknown
	}
	p.policy = policy
}

// New builds the gateway selected by cfg.
func New(cfg config.NotificationsConfig) Gateway {
	if cfg.Backend == config.NotifyLog {
		return NewLogGateway(cfg.Permission)
	}
	return NewDesktopGateway(cfg.Permission)
}

// PolicySetter is implemented by gateways whose permission policy can change at runtime.
type PolicySetter interface {
	SetPolicy(policy config.PermissionPolicy)
}
