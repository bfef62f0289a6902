package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"qaboard/internal/models"
	"qaboard/internal/orm"
)

type Questions struct {
	store *models.Store
}

type Dashboard struct {
	Answered   []*models.Question
	Unanswered []*models.Question
}

type AnswerView struct {
	*models.Answer
	Answerer *models.User
}

// QuestionView is everything the question page shows.
type QuestionView struct {
	Question *models.Question
	Asker    *models.User
	Tags     []*models.Tag
	Answers  []AnswerView
	Selected *AnswerView // nil while unanswered
}

// Ask creates a question for userID from the question, description and tags
// fields and returns its id.
func (s *Questions) Ask(ctx context.Context, userID int64, form Form) (int64, error) {
	input := form.pick("question")
	names, err := s.validate(ctx, input, form["tags"])
	if err != nil {
		return 0, err
	}

	id, err := s.store.Questions.Create(ctx, orm.Fields{
		"question":    input["question"],
		"description": strings.TrimSpace(form["description"]),
		"answered":    false,
		"asker_id":    userID,
	})
	if err != nil {
		return 0, err
	}
	q, err := s.store.Questions.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := s.setTags(ctx, q, names); err != nil {
		return 0, err
	}
	log.Info().Int64("question_id", id).Int64("user_id", userID).Msg("question asked")
	return id, nil
}

// ForEdit returns the question and its tags as a comma separated field,
// for the asker only.
func (s *Questions) ForEdit(ctx context.Context, userID, qid int64) (*models.Question, string, error) {
	q, err := s.owned(ctx, userID, qid)
	if err != nil {
		return nil, "", err
	}
	tags, err := s.store.Questions.Tags(ctx, q)
	if err != nil {
		return nil, "", err
	}
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return q, strings.Join(names, ", "), nil
}

// Edit rewrites question and description. Tags are replaced when the form
// carries a tags field. Nothing else on the row is writable from a form.
func (s *Questions) Edit(ctx context.Context, userID, qid int64, form Form) error {
	q, err := s.owned(ctx, userID, qid)
	if err != nil {
		return err
	}
	input := form.pick("question")
	rawTags, hasTags := form["tags"]
	names, err := s.validate(ctx, input, rawTags)
	if err != nil {
		return err
	}

	err = s.store.Questions.Of(q).Update(ctx, orm.Fields{
		"question":    input["question"],
		"description": strings.TrimSpace(form["description"]),
	})
	if err != nil {
		return err
	}
	if hasTags {
		if err := s.setTags(ctx, q, names); err != nil {
			return err
		}
	}
	log.Info().Int64("question_id", qid).Int64("user_id", userID).Msg("question edited")
	return nil
}

func (s *Questions) Delete(ctx context.Context, userID, qid int64) error {
	q, err := s.owned(ctx, userID, qid)
	if err != nil {
		return err
	}
	if err := s.store.Questions.Of(q).Delete(ctx); err != nil {
		return err
	}
	log.Info().Int64("question_id", qid).Int64("user_id", userID).Msg("question deleted")
	return nil
}

func (s *Questions) Dashboard(ctx context.Context) (*Dashboard, error) {
	answered, err := s.store.Questions.ByAnswered(ctx, true)
	if err != nil {
		return nil, err
	}
	unanswered, err := s.store.Questions.ByAnswered(ctx, false)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Answered: answered, Unanswered: unanswered}, nil
}

func (s *Questions) View(ctx context.Context, qid int64) (*QuestionView, error) {
	q, err := s.store.Questions.Get(ctx, qid)
	if err != nil {
		return nil, err
	}
	v := &QuestionView{Question: q}
	if v.Asker, err = s.store.Questions.Asker(ctx, q); err != nil {
		return nil, err
	}
	if v.Tags, err = s.store.Questions.Tags(ctx, q); err != nil {
		return nil, err
	}

	answers, err := s.store.Questions.Answers(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, a := range answers {
		av, err := s.answerView(ctx, a)
		if err != nil {
			return nil, err
		}
		v.Answers = append(v.Answers, av)
	}

	selected, err := s.store.Questions.SelectedAnswer(ctx, q)
	switch {
	case errors.Is(err, orm.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		av, err := s.answerView(ctx, selected)
		if err != nil {
			return nil, err
		}
		v.Selected = &av
	}
	return v, nil
}

// Tagged returns the tag with the given slug and its questions.
func (s *Questions) Tagged(ctx context.Context, slug string) (*models.Tag, []*models.Question, error) {
	tag, err := s.store.Tags.BySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	qs, err := s.store.Tags.Questions(ctx, tag)
	if err != nil {
		return nil, nil, err
	}
	return tag, qs, nil
}

func (s *Questions) owned(ctx context.Context, userID, qid int64) (*models.Question, error) {
	q, err := s.store.Questions.Get(ctx, qid)
	if err != nil {
		return nil, err
	}
	if q.AskerID != userID {
		return nil, fmt.Errorf("question %d is not asked by user %d: %w", qid, userID, ErrForbidden)
	}
	return q, nil
}

// validate checks the question fields and every tag name, merging the
// messages of both record types.
func (s *Questions) validate(ctx context.Context, input map[string]string, rawTags string) ([]string, error) {
	verrs, err := s.store.Questions.Rules().Validate(ctx, input)
	if err != nil {
		return nil, err
	}
	names := models.ParseTagNames(rawTags)
	tagRules := s.store.Tags.Rules()
	for _, name := range names {
		terrs, err := tagRules.Validate(ctx, map[string]string{"name": name})
		if err != nil {
			return nil, err
		}
		for k, msg := range terrs {
			verrs[k] = msg
		}
	}
	if !verrs.OK() {
		return nil, verrs
	}
	return names, nil
}

func (s *Questions) setTags(ctx context.Context, q *models.Question, names []string) error {
	tags, err := s.store.Tags.Ensure(ctx, names)
	if err != nil {
		return err
	}
	return s.store.Questions.SetTags(ctx, q, tags)
}

func (s *Questions) answerView(ctx context.Context, a *models.Answer) (AnswerView, error) {
	u, err := s.store.Answers.Answerer(ctx, a)
	if err != nil {
		return AnswerView{}, err
	}
	return AnswerView{Answer: a, Answerer: u}, nil
}
