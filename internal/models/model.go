package models

import (
	"time"

	"qaboard/internal/orm"
)

type User struct {
	ID        int64
	Username  string
	Email     string
	Password  string // bcrypt hash
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Question struct {
	ID          int64
	Question    string
	Description string
	Answered    bool
	AskerID     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Answer struct {
	ID         int64
	Answer     string
	Selected   bool
	AnswererID int64
	QuestionID int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Tag struct {
	ID        int64
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store groups the record tables over one database.
type Store struct {
	DB        *orm.DB
	Users     *Users
	Questions *Questions
	Answers   *Answers
	Tags      *Tags
}

func NewStore(db *orm.DB) *Store {
	s := &Store{DB: db}
	s.Users = newUsers(db, s)
	s.Questions = newQuestions(db, s)
	s.Answers = newAnswers(db, s)
	s.Tags = newTags(db, s)

	// question_tags is walked from both ends.
	s.Questions.tags = orm.NewManyToMany(s.Questions.Table, s.Tags.Table, "question_tags", "", "")
	s.Tags.questions = orm.NewManyToMany(s.Tags.Table, s.Questions.Table, "question_tags", "", "")
	return s
}
