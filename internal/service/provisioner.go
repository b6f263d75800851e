// internal/service/provisioner.go
package service

import (
	"context"
	"errors"
	"fmt"

	"balance-ledger/internal/domain"
	"balance-ledger/internal/repository"
	"balance-ledger/internal/util"
)

// UserProvisioner makes sure a user row exists before money is credited to it.
type UserProvisioner interface {
	// EnsureUser reports whether the user already existed, creating it otherwise.
	EnsureUser(ctx context.Context, unit repository.Unit, userID int64) (existed bool, err error)
}

type userProvisioner struct{}

// NewUserProvisioner creates a provisioner that inserts missing users flagged as system-created.
func NewUserProvisioner() UserProvisioner {
	return &userProvisioner{}
}

func (p *userProvisioner) EnsureUser(ctx context.Context, unit repository.Unit, userID int64) (bool, error) {
	_, err := unit.GetUser(ctx, userID)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, util.ErrNotFound) {
		return false, fmt.Errorf("ensure user %d: %w", userID, err)
	}

	created, err := unit.CreateUser(ctx, domain.NewSystemUser(userID))
	if err != nil {
		return false, fmt.Errorf("ensure user %d: failed to create: %w", userID, err)
	}
	return !created, nil
}
