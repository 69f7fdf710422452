package activity

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ahmedramy514/khadamli-darasi/core"
	"github.com/ahmedramy514/khadamli-darasi/core/account"
)

type RatingPolicy string

const (
	// RatingsUnique accepts one vote per (rater, answer).
	RatingsUnique RatingPolicy = "unique"
	// RatingsUnlimited counts every vote, repeated ones included.
	RatingsUnlimited RatingPolicy = "unlimited"
)

func ParseRatingPolicy(s string) RatingPolicy {
	if RatingPolicy(core.CleanString(s, true /* lower */)) == RatingsUnlimited {
		return RatingsUnlimited
	}
	return RatingsUnique
}

type Question struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type NewQuestion struct {
	Title string `json:"title" validate:"required,notblank"`
	Body  string `json:"body"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Title = core.CleanString(nq.Title)
	nq.Body = core.CleanString(nq.Body)
	return validate.Struct(nq)
}

// Answer is an answer to a question with its social (likes) and reputation (useful, not useful) counters.
type Answer struct {
	ID             string    `json:"id"`
	QuestionID     string    `json:"question_id"`
	AuthorID       string    `json:"author_id"`
	Text           string    `json:"text"`
	Likes          int       `json:"likes"`
	UsefulCount    int       `json:"useful_count"`
	NotUsefulCount int       `json:"not_useful_count"`
	CreatedAt      time.Time `json:"created_at"` // UTC
}

type NewAnswer struct {
	Text string `json:"text" validate:"required,notblank"`
}

func (na *NewAnswer) Validate(validate *validator.Validate) error {
	na.Text = core.CleanString(na.Text)
	return validate.Struct(na)
}

// AnswerCounters holds increments applied to an answer in one atomic step.
type AnswerCounters struct {
	Likes     int
	Useful    int
	NotUseful int
}

type AnswerResult struct {
	Answer    Answer          `json:"answer"`
	NewBadges []account.Badge `json:"new_badges"`
}

type Rating struct {
	AnswerID  string
	RaterID   string
	Useful    bool
	CreatedAt time.Time
}

// Counters returns the answer counter change of the vote: sign 1 counts it, -1 withdraws it.
func (r Rating) Counters(sign int) AnswerCounters {
	if r.Useful {
		return AnswerCounters{Useful: sign}
	}
	return AnswerCounters{NotUseful: sign}
}

type Kind string

const (
	KindAssignment Kind = "assignment"
	KindExam       Kind = "exam"
)

// Submission is the graded work of one student for one assignment or exam.
type Submission struct {
	ID            string    `json:"id"`
	EntityID      string    `json:"entity_id"`
	Kind          Kind      `json:"kind"`
	StudentID     string    `json:"student_id"`
	Score         float64   `json:"score"`
	MaxScore      float64   `json:"max_score"`
	Feedback      string    `json:"feedback"`
	PointsAwarded int       `json:"points_awarded"`
	GradedAt      time.Time `json:"graded_at"` // UTC
}

type GradeInput struct {
	EntityID  string  `json:"entity_id" validate:"required,notblank"`
	Kind      Kind    `json:"kind" validate:"required,oneof=assignment exam"`
	StudentID string  `json:"student_id" validate:"required,notblank"`
	Score     float64 `json:"score" validate:"gte=0"`
	MaxScore  float64 `json:"max_score" validate:"gte=0"`
	Feedback  string  `json:"feedback"`
	// Correct grades pass/fail assignments that have no MaxScore.
	Correct bool `json:"correct"`
}

func (gi *GradeInput) Validate(validate *validator.Validate) error {
	gi.EntityID = core.CleanString(gi.EntityID)
	gi.StudentID = core.CleanString(gi.StudentID)
	gi.Feedback = core.CleanString(gi.Feedback)
	if gi.Kind == "" {
		gi.Kind = KindAssignment
	}
	if err := validate.Struct(gi); err != nil {
		return err
	}
	if gi.MaxScore > 0 && gi.Score > gi.MaxScore {
		return core.NewValidationError(nil, core.FieldError{Field: "score", Error: "score cannot exceed max_score"})
	}
	return nil
}
