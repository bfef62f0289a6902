package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"qaboard/internal/models"
	"qaboard/internal/orm"
)

type Answers struct {
	store *models.Store
}

// Post adds an answer by userID to question qid and returns its id.
func (s *Answers) Post(ctx context.Context, userID, qid int64, form Form) (int64, error) {
	input := form.pick("answer")
	verrs, err := s.store.Answers.Rules().Validate(ctx, input)
	if err != nil {
		return 0, err
	}
	if !verrs.OK() {
		return 0, verrs
	}
	if _, err := s.store.Questions.Get(ctx, qid); err != nil {
		return 0, err
	}

	id, err := s.store.Answers.Create(ctx, orm.Fields{
		"answer":      input["answer"],
		"selected":    false,
		"answerer_id": userID,
		"question_id": qid,
	})
	if err != nil {
		return 0, err
	}
	log.Info().Int64("answer_id", id).Int64("question_id", qid).Int64("user_id", userID).Msg("answer posted")
	return id, nil
}

// Approve marks question qid answered with answer aid. Only the asker may
// approve, once.
func (s *Answers) Approve(ctx context.Context, userID, qid, aid int64) error {
	q, err := s.store.Questions.Get(ctx, qid)
	if err != nil {
		return err
	}
	if q.AskerID != userID {
		return fmt.Errorf("question %d is not asked by user %d: %w", qid, userID, ErrForbidden)
	}
	if q.Answered {
		return fmt.Errorf("question %d is already answered: %w", qid, ErrForbidden)
	}
	a, err := s.belonging(ctx, qid, aid)
	if err != nil {
		return err
	}

	if err := s.store.Questions.Of(q).Update(ctx, orm.Fields{"answered": true}); err != nil {
		return err
	}
	if err := s.store.Answers.Of(a).Update(ctx, orm.Fields{"selected": true}); err != nil {
		return err
	}
	log.Info().Int64("answer_id", aid).Int64("question_id", qid).Msg("answer approved")
	return nil
}

// Delete removes answer aid of question qid. Only its author may, and not
// once it is selected.
func (s *Answers) Delete(ctx context.Context, userID, qid, aid int64) error {
	a, err := s.belonging(ctx, qid, aid)
	if err != nil {
		return err
	}
	if a.AnswererID != userID {
		return fmt.Errorf("answer %d is not posted by user %d: %w", aid, userID, ErrForbidden)
	}
	if a.Selected {
		return fmt.Errorf("answer %d is selected: %w", aid, ErrForbidden)
	}
	if err := s.store.Answers.Of(a).Delete(ctx); err != nil {
		return err
	}
	log.Info().Int64("answer_id", aid).Int64("question_id", qid).Int64("user_id", userID).Msg("answer deleted")
	return nil
}

// belonging loads answer aid, reporting ErrNotFound when it is not an
// answer to question qid.
func (s *Answers) belonging(ctx context.Context, qid, aid int64) (*models.Answer, error) {
	a, err := s.store.Answers.Get(ctx, aid)
	if err != nil {
		return nil, err
	}
	if a.QuestionID != qid {
		return nil, fmt.Errorf("answer %d of question %d: %w", aid, qid, orm.ErrNotFound)
	}
	return a, nil
}
