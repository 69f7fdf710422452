package activity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ahmedramy514/khadamli-darasi/core"
	"github.com/ahmedramy514/khadamli-darasi/core/account"
	"github.com/ahmedramy514/khadamli-darasi/core/notification"
)

var (
	// errors
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrAnswerNotFound     = errors.New("answer not found")
	ErrAlreadyRated       = errors.New("answer already rated by this account")
)

type (
	Repository interface {
		CreateQuestion(ctx context.Context, q Question) (Question, error)
		GetQuestionByID(ctx context.Context, id string) (Question, error)
		CreateAnswer(ctx context.Context, a Answer) (Answer, error)
		// GetAnswerByID returns ErrAnswerNotFound when the answer does not belong to questionID.
		GetAnswerByID(ctx context.Context, questionID, answerID string) (Answer, error)
		// IncrementAnswerCounters atomically adds delta to the answer and returns it updated.
		IncrementAnswerCounters(ctx context.Context, answerID string, delta AnswerCounters) (Answer, error)
		// RecordRating stores the vote and counts it on the answer in one atomic step, unless the rater
		// already rated the answer. It returns the answer and whether the vote was stored.
		RecordRating(ctx context.Context, r Rating) (Answer, bool, error)
		// RemoveRating deletes the vote of (AnswerID, RaterID) and uncounts it in one atomic step.
		// Removing a vote that is not stored only returns the answer.
		RemoveRating(ctx context.Context, r Rating) (Answer, error)
		// SaveGrade inserts or overwrites the grade of (EntityID, StudentID). PointsAwarded never decreases
		// on overwrite. It returns the stored submission and the points awarded by the grade it replaced, if any.
		// Concurrent saves of the same (EntityID, StudentID) are serialized: each one sees the points
		// of the grade saved before it.
		SaveGrade(ctx context.Context, s Submission) (Submission, int, error)
		GetSubmission(ctx context.Context, entityID, studentID string) (Submission, error)
	}

	// Ledger is the part of the account ledger driven by activity events.
	Ledger interface {
		GetByID(ctx context.Context, id string) (account.Account, error)
		AwardPoints(ctx context.Context, id string, amount int, weeklyToo bool) (account.Account, error)
		RecordAnswer(ctx context.Context, id string) (account.Account, []account.Badge, error)
		RecordHelpfulMark(ctx context.Context, id string) (account.Account, []account.Badge, error)
	}

	Notifier interface {
		Notify(ctx context.Context, nn notification.NewNotification) (notification.Notification, error)
	}

	// Service turns questions, answers, ratings and grades into ledger mutations.
	Service struct {
		repo     Repository
		ledger   Ledger
		notifier Notifier
		policy   RatingPolicy
		logger   core.Logger
	}
)

func NewService(repo Repository, ledger Ledger, notifier Notifier, policy RatingPolicy, logger core.Logger) *Service {
	return &Service{
		repo:     repo,
		ledger:   ledger,
		notifier: notifier,
		policy:   policy,
		logger:   logger,
	}
}

func (svc *Service) AskQuestion(ctx context.Context, authorID string, nq NewQuestion) (Question, error) {
	if _, err := svc.ledger.GetByID(ctx, authorID); err != nil {
		return Question{}, errors.Wrap(err, "finding author")
	}
	q := Question{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Title:     nq.Title,
		Body:      nq.Body,
		CreatedAt: core.Now(),
	}
	err := core.Retry(ctx, func() (err error) {
		q, err = svc.repo.CreateQuestion(ctx, q)
		return err
	})
	return q, errors.Wrap(err, "creating question")
}

func (svc *Service) GetQuestion(ctx context.Context, id string) (Question, error) {
	var q Question
	err := core.Retry(ctx, func() (err error) {
		q, err = svc.repo.GetQuestionByID(ctx, id)
		return err
	})
	return q, err
}

func (svc *Service) getAnswer(ctx context.Context, questionID, answerID string) (Answer, error) {
	var a Answer
	err := core.Retry(ctx, func() (err error) {
		a, err = svc.repo.GetAnswerByID(ctx, questionID, answerID)
		return err
	})
	return a, err
}

func (svc *Service) incrementAnswer(ctx context.Context, answerID string, delta AnswerCounters) (Answer, error) {
	var a Answer
	err := core.Retry(ctx, func() (err error) {
		a, err = svc.repo.IncrementAnswerCounters(ctx, answerID, delta)
		return err
	})
	return a, errors.Wrap(err, "incrementing answer counters")
}

// SubmitAnswer stores an answer and books it on the author's ledger.
func (svc *Service) SubmitAnswer(ctx context.Context, questionID, authorID string, na NewAnswer) (AnswerResult, error) {
	q, err := svc.GetQuestion(ctx, questionID)
	if err != nil {
		return AnswerResult{}, err
	}
	if _, err = svc.ledger.GetByID(ctx, authorID); err != nil {
		return AnswerResult{}, errors.Wrap(err, "finding author")
	}

	ans := Answer{
		ID:         uuid.New().String(),
		QuestionID: q.ID,
		AuthorID:   authorID,
		Text:       na.Text,
		CreatedAt:  core.Now(),
	}
	err = core.Retry(ctx, func() (err error) {
		ans, err = svc.repo.CreateAnswer(ctx, ans)
		return err
	})
	if err != nil {
		return AnswerResult{}, errors.Wrap(err, "creating answer")
	}

	_, badges, err := svc.ledger.RecordAnswer(ctx, authorID)
	if err != nil {
		return AnswerResult{}, errors.Wrap(err, "recording answer")
	}

	if q.AuthorID != authorID {
		svc.notify(ctx, notification.NewNotification{
			RecipientID: q.AuthorID,
			Type:        notification.TypeAnswer,
			Title:       "New answer",
			Description: fmt.Sprintf("Your question %q received a new answer", q.Title),
			RelatedID:   ans.ID,
		})
	}
	svc.notifyBadges(ctx, authorID, badges)

	if badges == nil {
		badges = []account.Badge{}
	}
	return AnswerResult{Answer: ans, NewBadges: badges}, nil
}

// LikeAnswer is purely social: it never touches the ledger.
func (svc *Service) LikeAnswer(ctx context.Context, questionID, answerID string) (Answer, error) {
	ans, err := svc.getAnswer(ctx, questionID, answerID)
	if err != nil {
		return Answer{}, err
	}
	return svc.incrementAnswer(ctx, ans.ID, AnswerCounters{Likes: 1})
}

// RateAnswer counts a useful / not useful vote. A useful vote from anyone but the author
// books a helpful mark on the author's ledger; self votes only move the counter.
// When the helpful mark fails the vote is withdrawn, so the rater can vote again.
func (svc *Service) RateAnswer(ctx context.Context, questionID, answerID, raterID string, useful bool) (Answer, error) {
	ans, err := svc.getAnswer(ctx, questionID, answerID)
	if err != nil {
		return Answer{}, err
	}

	rating := Rating{AnswerID: ans.ID, RaterID: raterID, Useful: useful, CreatedAt: core.Now()}
	if svc.policy == RatingsUnlimited {
		if ans, err = svc.incrementAnswer(ctx, ans.ID, rating.Counters(1)); err != nil {
			return Answer{}, err
		}
	} else {
		var stored bool
		err = core.Retry(ctx, func() (err error) {
			ans, stored, err = svc.repo.RecordRating(ctx, rating)
			return err
		})
		if err != nil {
			return Answer{}, errors.Wrap(err, "recording rating")
		}
		if !stored {
			return Answer{}, ErrAlreadyRated
		}
	}

	if !useful || raterID == ans.AuthorID {
		return ans, nil
	}

	_, badges, err := svc.ledger.RecordHelpfulMark(ctx, ans.AuthorID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			svc.logger.Warn(fmt.Sprintf("answer %s rated useful but its author %s is gone", ans.ID, ans.AuthorID), err)
			return ans, nil
		}
		svc.withdrawRating(ctx, rating)
		return Answer{}, errors.Wrap(err, "recording helpful mark")
	}

	svc.notify(ctx, notification.NewNotification{
		RecipientID: ans.AuthorID,
		Type:        notification.TypeRating,
		Title:       "Answer marked useful",
		Description: fmt.Sprintf("Your answer earned %d points", account.HelpfulMarkPoints),
		RelatedID:   ans.ID,
	})
	svc.notifyBadges(ctx, ans.AuthorID, badges)
	return ans, nil
}

// GradeSubmission stores the grade first, then books the earned points on the student's ledger.
// The two writes are not atomic: when the ledger update fails the grade stays recorded and the error is returned.
// Re-grading only awards the points the new grade earns on top of the previous one.
func (svc *Service) GradeSubmission(ctx context.Context, in GradeInput) (Submission, error) {
	if _, err := svc.ledger.GetByID(ctx, in.StudentID); err != nil {
		return Submission{}, errors.Wrap(err, "finding student")
	}

	sub := Submission{
		ID:            uuid.New().String(),
		EntityID:      in.EntityID,
		Kind:          in.Kind,
		StudentID:     in.StudentID,
		Score:         in.Score,
		MaxScore:      in.MaxScore,
		Feedback:      in.Feedback,
		PointsAwarded: GradePoints(in.Score, in.MaxScore, in.Correct),
		GradedAt:      core.Now(),
	}
	var prevPoints int
	err := core.Retry(ctx, func() (err error) {
		sub, prevPoints, err = svc.repo.SaveGrade(ctx, sub)
		return err
	})
	if err != nil {
		return Submission{}, errors.Wrap(err, "saving grade")
	}

	if extra := sub.PointsAwarded - prevPoints; extra > 0 {
		if _, err = svc.ledger.AwardPoints(ctx, sub.StudentID, extra, true); err != nil {
			svc.logger.Error(fmt.Sprintf("grade %s recorded but awarding %d points to %s failed: %v", sub.ID, extra, sub.StudentID, err), err)
			return sub, errors.Wrap(err, "awarding grade points")
		}
	}

	svc.notify(ctx, notification.NewNotification{
		RecipientID: sub.StudentID,
		Type:        notification.TypeGrade,
		Title:       "New grade",
		Description: fmt.Sprintf("Your %s was graded: %g/%g", sub.Kind, sub.Score, sub.MaxScore),
		RelatedID:   sub.EntityID,
	})
	return sub, nil
}

// Submission returns the grade of studentID for entityID.
func (svc *Service) Submission(ctx context.Context, entityID, studentID string) (Submission, error) {
	var sub Submission
	err := core.Retry(ctx, func() (err error) {
		sub, err = svc.repo.GetSubmission(ctx, entityID, studentID)
		return err
	})
	return sub, err
}

func (svc *Service) withdrawRating(ctx context.Context, r Rating) {
	err := core.Retry(ctx, func() (err error) {
		if svc.policy == RatingsUnlimited {
			_, err = svc.repo.IncrementAnswerCounters(ctx, r.AnswerID, r.Counters(-1))
			return err
		}
		_, err = svc.repo.RemoveRating(ctx, r)
		return err
	})
	if err != nil {
		svc.logger.Error(fmt.Sprintf("withdrawing vote of %s on answer %s: %v", r.RaterID, r.AnswerID, err), err)
	}
}

func (svc *Service) notifyBadges(ctx context.Context, accountID string, badges []account.Badge) {
	for _, b := range badges {
		svc.notify(ctx, notification.NewNotification{
			RecipientID: accountID,
			Type:        notification.TypeBadge,
			Title:       "New badge",
			Description: fmt.Sprintf("You earned the %q badge", b.Name),
			RelatedID:   b.Name,
		})
	}
}

// notify is a secondary effect of an action that already succeeded: failures are only logged.
func (svc *Service) notify(ctx context.Context, nn notification.NewNotification) {
	if svc.notifier == nil {
		return
	}
	if _, err := svc.notifier.Notify(ctx, nn); err != nil {
		svc.logger.Error(fmt.Sprintf("notifying %s (%s): %v", nn.RecipientID, nn.Type, err), err)
	}
}
