package license

import (
	"context"

	apierrors "seopilot/internal/errors"
)

// Gate blocks optimization unless the stored license status is success
type Gate struct {
	repo *Repository
}

// NewGate creates a gate over repo
func NewGate(repo *Repository) *Gate {
	return &Gate{repo: repo}
}

// Require returns nil only when the stored status is active. The status is
// read on every call.
func (g *Gate) Require(ctx context.Context) error {
	status, err := g.repo.Status(ctx)
	if err != nil {
		return apierrors.Internal(err)
	}
	if !status.Active() {
		return apierrors.LicenseInactive(string(status))
	}
	return nil
}
