package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/tabwave/payvault/internal/apperr"
	"github.com/tabwave/payvault/internal/domain"
	"github.com/tabwave/payvault/internal/store"
	"github.com/tabwave/payvault/pkg/cryptox"
)

// UserService manages account records. Authorization decisions stay with
// the caller; this layer only enforces data invariants.
type UserService struct {
	Store store.Store
	Audit *AuditService
}

// Create validates and inserts a new account. The first account in an empty
// database is promoted to admin so the service can be bootstrapped.
func (s *UserService) Create(ctx context.Context, email, password string, role domain.Role, ip string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, apperr.Validation("invalid email address")
	}
	if err := cryptox.CheckPasswordStrength(password); err != nil {
		return domain.User{}, apperr.Validation(err.Error())
	}
	if !role.Valid() {
		return domain.User{}, apperr.Validation("invalid role")
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, apperr.Wrap(apperr.KindInternal, err, "password hashing failed")
	}

	// The empty-check and the insert share one transaction, so two
	// concurrent first signups cannot both see an empty table and both
	// come out admin.
	var user domain.User
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		empty, err := tx.Users().IsEmpty(ctx)
		if err != nil {
			return err
		}
		if empty {
			role = domain.RoleAdmin
		}

		id, err := tx.Users().CreateUser(ctx, domain.User{
			Email:        email,
			PasswordHash: hash,
			Role:         role,
		})
		if err != nil {
			return err
		}

		user, err = tx.Users().GetUserByID(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, apperr.Validation("email already registered")
		}
		return domain.User{}, apperr.Wrap(apperr.KindInternal, err, "user create failed")
	}

	s.Audit.Record(ctx, user.ID, "user.create", "user", map[string]string{"email": email, "role": role.String()}, ip)
	return user, nil
}

// GetByID fetches one account.
func (s *UserService) GetByID(ctx context.Context, userID int64) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, apperr.NotFound("user not found")
		}
		return domain.User{}, apperr.Wrap(apperr.KindInternal, err, "user lookup failed")
	}
	return user, nil
}

// List returns all accounts ordered by id.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.Store.Users().ListUsers(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "user list failed")
	}
	return users, nil
}

// UserUpdate carries the optional fields of a partial account update. Nil
// fields are left unchanged.
type UserUpdate struct {
	Email    *string
	Password *string
	Role     *domain.Role
}

// Update applies a partial update to an account. A password change revokes
// every refresh session the user holds, same as ChangePassword. Who may
// change which field is the boundary's decision; this layer validates the
// values.
func (s *UserService) Update(ctx context.Context, sessions store.Sessions, userID int64, upd UserUpdate, ip string) (domain.User, error) {
	var changed []string

	if upd.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*upd.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			return domain.User{}, apperr.Validation("invalid email address")
		}
		if err := s.Store.Users().UpdateEmail(ctx, userID, email); err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				return domain.User{}, apperr.NotFound("user not found")
			case errors.Is(err, store.ErrAlreadyExists):
				return domain.User{}, apperr.Validation("email already registered")
			}
			return domain.User{}, apperr.Wrap(apperr.KindInternal, err, "email update failed")
		}
		changed = append(changed, "email")
	}

	if upd.Role != nil {
		if !upd.Role.Valid() {
			return domain.User{}, apperr.Validation("invalid role")
		}
		if err := s.Store.Users().UpdateRole(ctx, userID, *upd.Role); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.User{}, apperr.NotFound("user not found")
			}
			return domain.User{}, apperr.Wrap(apperr.KindInternal, err, "role update failed")
		}
		changed = append(changed, "role")
	}

	if upd.Password != nil {
		if err := s.ChangePassword(ctx, sessions, userID, *upd.Password, ip); err != nil {
			return domain.User{}, err
		}
		changed = append(changed, "password")
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}

	if len(changed) > 0 {
		s.Audit.Record(ctx, userID, "user.update", "user", map[string][]string{"fields": changed}, ip)
	}
	return user, nil
}

// ChangePassword re-hashes and stores a new password, then revokes every
// refresh session the user holds.
func (s *UserService) ChangePassword(ctx context.Context, sessions store.Sessions, userID int64, newPassword, ip string) error {
	if err := cryptox.CheckPasswordStrength(newPassword); err != nil {
		return apperr.Validation(err.Error())
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "password hashing failed")
	}

	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Wrap(apperr.KindInternal, err, "password update failed")
	}

	if _, err := sessions.DeleteSessionsByUser(ctx, userID); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "session sweep failed")
	}

	s.Audit.Record(ctx, userID, "user.change_password", "user", nil, ip)
	return nil
}

// Delete removes an account. Sessions and merchant config cascade away with
// it.
func (s *UserService) Delete(ctx context.Context, userID int64, ip string) error {
	if err := s.Store.Users().DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Wrap(apperr.KindInternal, err, "user delete failed")
	}

	s.Audit.Record(ctx, userID, "user.delete", "user", nil, ip)
	return nil
}
