// Package service holds the owner-gated operations behind the HTTP handlers.
// Every operation validates its form, checks who is acting and reports the
// outcome as an error: ErrForbidden, orm.ErrNotFound, orm.ValidationErrors or
// a wrapped database error.
package service

import (
	"errors"

	"qaboard/internal/models"
)

var ErrForbidden = errors.New("forbidden")

// Form carries submitted form values by field name.
type Form map[string]string

// pick copies the named fields out of f, with missing ones as "".
func (f Form) pick(fields ...string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, k := range fields {
		out[k] = f[k]
	}
	return out
}

type Service struct {
	Users     *Users
	Questions *Questions
	Answers   *Answers
}

func New(store *models.Store) *Service {
	return &Service{
		Users:     &Users{store: store},
		Questions: &Questions{store: store},
		Answers:   &Answers{store: store},
	}
}
