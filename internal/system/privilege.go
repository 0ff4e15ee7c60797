package system

import (
	"context"
	"sync"
)

// Privilege decides how mutating commands are run: directly when the
// process is root, through passwordless sudo when available, and not at
// all otherwise. The sudo probe result is cached for the process lifetime.
type Privilege struct {
	cmd  Commander
	euid func() int

	mu      sync.Mutex
	probed  bool
	canSudo bool
}

// NewPrivilege returns a Privilege using the given Commander for probing.
func NewPrivilege(cmd Commander, euid func() int) *Privilege {
	return &Privilege{cmd: cmd, euid: euid}
}

// IsRoot reports whether the process runs with effective uid 0.
func (p *Privilege) IsRoot() bool {
	return p.euid() == 0
}

// CanElevate reports whether passwordless sudo is available.
func (p *Privilege) CanElevate(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.probed {
		return p.canSudo
	}
	p.probed = true

	if !p.cmd.LookPath("sudo") {
		p.canSudo = false
		return false
	}
	result, err := p.cmd.Run(ctx, "sudo", "-n", "true")
	p.canSudo = err == nil && result.Succeeded()
	return p.canSudo
}

// Wrap rewrites a mutating command so it runs with the required privilege.
// Returns ErrNeedRoot when neither root nor passwordless sudo is available.
func (p *Privilege) Wrap(ctx context.Context, name string, args ...string) (string, []string, error) {
	if p.IsRoot() {
		return name, args, nil
	}
	if p.CanElevate(ctx) {
		return "sudo", append([]string{"-n", name}, args...), nil
	}
	return "", nil, ErrNeedRoot
}
