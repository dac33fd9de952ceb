package authkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// CurrentUser returns the profile for a validated user ID.
func (e *Engine) CurrentUser(ctx context.Context, userID string) (Profile, error) {
	if err := e.ready(); err != nil {
		return Profile{}, err
	}

	user, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			return Profile{}, ErrUserNotFound
		}
		return Profile{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	return profileOf(user), nil
}

// UpdateProfile changes the display name and returns the updated profile.
func (e *Engine) UpdateProfile(ctx context.Context, userID, name string) (Profile, error) {
	if err := e.ready(); err != nil {
		return Profile{}, err
	}

	name = strings.TrimSpace(name)
	if !validName(name) {
		return Profile{}, ErrInvalidInput
	}

	user, err := e.users.UpdateName(ctx, userID, name)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			return Profile{}, ErrUserNotFound
		}
		return Profile{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.emitAudit(ctx, auditEventProfileUpdate, true, userID, user.Email, nil, nil)

	return profileOf(user), nil
}
