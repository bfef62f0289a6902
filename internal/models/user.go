package models

import (
	"context"
	"errors"
	"regexp"

	"qaboard/internal/auth"
	"qaboard/internal/orm"
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9.+_-]+@[a-zA-Z0-9._-]+\.[a-zA-Z]+$`)

type Users struct {
	*orm.Table[User]
	store *Store
	rules orm.Ruleset
}

func newUsers(db *orm.DB, s *Store) *Users {
	u := &Users{
		Table: orm.NewTable(db, orm.Schema[User]{
			Columns: []string{"id", "username", "email", "password", "created_at", "updated_at"},
			Bind: func(u *User) []any {
				return []any{&u.ID, &u.Username, &u.Email, &u.Password, &u.CreatedAt, &u.UpdatedAt}
			},
			ID: func(u *User) int64 { return u.ID },
		}),
		store: s,
	}
	u.rules = orm.NewRuleset(u.TypeName(),
		orm.Rule{Field: "username", Message: "Username must be at least 2 characters!", Check: orm.MinLen(2)},
		orm.Rule{Field: "email", Message: "Must be a valid email!", Check: validEmail},
		orm.Rule{Field: "email", Message: "Email is already in use!", Check: u.emailFree},
		orm.Rule{Field: "password", Message: "Password must be at least 8 characters!", Check: orm.MinLen(8)},
		orm.Rule{Field: "confirm_password", Message: "Passwords must match!", Deps: []string{"password"}, Check: orm.Equals("password")},
		orm.Rule{Field: "login_email", Message: "Invalid Email!", Check: u.emailKnown},
		orm.Rule{Field: "login_password", Message: "Invalid Password!", Deps: []string{"login_email"}, Check: u.passwordMatches},
	)
	return u
}

// Rules covers both the registration fields and the login fields; a form
// only supplies one group, the other is skipped.
func (u *Users) Rules() orm.Ruleset { return u.rules }

func (u *Users) ByEmail(ctx context.Context, email string) (*User, error) {
	return u.RetrieveOne(ctx, orm.Fields{"email": email})
}

// Questions returns the questions asked by user, newest first.
func (u *Users) Questions(ctx context.Context, user *User) ([]*Question, error) {
	return u.store.Questions.RetrieveAll(ctx, orm.Fields{"asker_id": user.ID}, orm.OrderBy("id", true))
}

// Answers returns the answers posted by user, newest first.
func (u *Users) Answers(ctx context.Context, user *User) ([]*Answer, error) {
	return u.store.Answers.RetrieveAll(ctx, orm.Fields{"answerer_id": user.ID}, orm.OrderBy("id", true))
}

func validEmail(_ context.Context, v string, _ map[string]string) (bool, error) {
	return emailRe.MatchString(v), nil
}

func (u *Users) emailFree(ctx context.Context, v string, _ map[string]string) (bool, error) {
	_, err := u.ByEmail(ctx, v)
	if errors.Is(err, orm.ErrNotFound) {
		return true, nil
	}
	return false, err
}

func (u *Users) emailKnown(ctx context.Context, v string, _ map[string]string) (bool, error) {
	_, err := u.ByEmail(ctx, v)
	if errors.Is(err, orm.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (u *Users) passwordMatches(ctx context.Context, v string, deps map[string]string) (bool, error) {
	user, err := u.ByEmail(ctx, deps["login_email"])
	if errors.Is(err, orm.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return auth.CheckPassword(v, user.Password), nil
}
