package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"qaboard/internal/auth"
	"qaboard/internal/models"
	"qaboard/internal/orm"
)

type Users struct {
	store *models.Store
}

// Register creates a user from username, email, password and
// confirm_password and returns the new id.
func (s *Users) Register(ctx context.Context, form Form) (int64, error) {
	input := form.pick("username", "email", "password", "confirm_password")
	input["username"] = strings.TrimSpace(input["username"])
	input["email"] = strings.TrimSpace(input["email"])

	rules := s.store.Users.Rules()
	verrs, err := rules.Validate(ctx, input)
	if err != nil {
		return 0, err
	}
	if !verrs.OK() {
		return 0, verrs
	}

	hash, err := auth.HashPassword(input["password"])
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	id, err := s.store.Users.Create(ctx, orm.Fields{
		"username": input["username"],
		"email":    input["email"],
		"password": hash,
	})
	if errors.Is(err, orm.ErrConflict) {
		// lost a race with another registration of the same email
		return 0, orm.ValidationErrors{rules.Key("email"): "Email is already in use!"}
	}
	if err != nil {
		return 0, err
	}
	log.Info().Int64("user_id", id).Str("username", input["username"]).Msg("user registered")
	return id, nil
}

// Login checks login_email and login_password and returns the user.
func (s *Users) Login(ctx context.Context, form Form) (*models.User, error) {
	input := form.pick("login_email", "login_password")
	input["login_email"] = strings.TrimSpace(input["login_email"])

	verrs, err := s.store.Users.Rules().Validate(ctx, input)
	if err != nil {
		return nil, err
	}
	if !verrs.OK() {
		return nil, verrs
	}
	return s.store.Users.ByEmail(ctx, input["login_email"])
}

func (s *Users) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.store.Users.Get(ctx, id)
}
