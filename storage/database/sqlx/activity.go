package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ahmedramy514/khadamli-darasi/core/account"
	"github.com/ahmedramy514/khadamli-darasi/core/activity"
	"github.com/ahmedramy514/khadamli-darasi/storage/database"
)

const (
	questionColumns   = `id, author_id, title, body, created_at`
	answerColumns     = `id, question_id, author_id, text, likes, useful_count, not_useful_count, created_at`
	submissionColumns = `id, entity_id, kind, student_id, score, max_score, feedback, points_awarded, graded_at`
)

type activityRepository struct {
	db *sqlx.DB
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *sqlx.DB) activity.Repository {
	return &activityRepository{db: db}
}

func (repo *activityRepository) CreateQuestion(ctx context.Context, q activity.Question) (activity.Question, error) {
	query := repo.db.Rebind(`INSERT INTO questions (` + questionColumns + `) VALUES (?, ?, ?, ?, ?)`)
	_, err := repo.db.ExecContext(ctx, query, q.ID, q.AuthorID, q.Title, q.Body, q.CreatedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return activity.Question{}, account.ErrNotFound
		}
		return activity.Question{}, database.StorageError("inserting question", err)
	}
	return q, nil
}

func (repo *activityRepository) GetQuestionByID(ctx context.Context, id string) (activity.Question, error) {
	var q activity.Question
	query := repo.db.Rebind(`SELECT ` + questionColumns + ` FROM questions WHERE id = ?`)
	err := repo.db.QueryRowxContext(ctx, query, id).Scan(&q.ID, &q.AuthorID, &q.Title, &q.Body, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return activity.Question{}, activity.ErrQuestionNotFound
		}
		return activity.Question{}, database.StorageError("selecting question", err)
	}
	q.CreatedAt = q.CreatedAt.UTC()
	return q, nil
}

func (repo *activityRepository) CreateAnswer(ctx context.Context, a activity.Answer) (activity.Answer, error) {
	query := repo.db.Rebind(`INSERT INTO answers (` + answerColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := repo.db.ExecContext(ctx, query,
		a.ID, a.QuestionID, a.AuthorID, a.Text, a.Likes, a.UsefulCount, a.NotUsefulCount, a.CreatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return activity.Answer{}, activity.ErrQuestionNotFound
		}
		return activity.Answer{}, database.StorageError("inserting answer", err)
	}
	return a, nil
}

func scanAnswer(row *sqlx.Row, op string) (activity.Answer, error) {
	var a activity.Answer
	err := row.Scan(&a.ID, &a.QuestionID, &a.AuthorID, &a.Text, &a.Likes, &a.UsefulCount, &a.NotUsefulCount, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return activity.Answer{}, activity.ErrAnswerNotFound
		}
		return activity.Answer{}, database.StorageError(op, err)
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func (repo *activityRepository) GetAnswerByID(ctx context.Context, questionID, answerID string) (activity.Answer, error) {
	query := repo.db.Rebind(`SELECT ` + answerColumns + ` FROM answers WHERE id = ? AND question_id = ?`)
	return scanAnswer(repo.db.QueryRowxContext(ctx, query, answerID, questionID), "selecting answer")
}

const incrementAnswerQuery = `UPDATE answers SET
		likes = likes + ?,
		useful_count = useful_count + ?,
		not_useful_count = not_useful_count + ?
	WHERE id = ?`

func incrementAnswer(ctx context.Context, tx *sqlx.Tx, answerID string, delta activity.AnswerCounters) (sql.Result, error) {
	return tx.ExecContext(ctx, tx.Rebind(incrementAnswerQuery), delta.Likes, delta.Useful, delta.NotUseful, answerID)
}

func selectAnswer(ctx context.Context, tx *sqlx.Tx, answerID string) (activity.Answer, error) {
	query := tx.Rebind(`SELECT ` + answerColumns + ` FROM answers WHERE id = ?`)
	return scanAnswer(tx.QueryRowxContext(ctx, query, answerID), "selecting answer")
}

func (repo *activityRepository) IncrementAnswerCounters(ctx context.Context, answerID string, delta activity.AnswerCounters) (a activity.Answer, err error) {
	err = updateThenSelect(ctx, repo.db, "incrementing answer counters",
		func(tx *sqlx.Tx) (sql.Result, error) {
			return incrementAnswer(ctx, tx, answerID, delta)
		},
		func(tx *sqlx.Tx) (err error) {
			a, err = selectAnswer(ctx, tx, answerID)
			return err
		},
	)
	if errors.Is(err, errNoRowsUpdated) {
		return activity.Answer{}, activity.ErrAnswerNotFound
	}
	return a, err
}

func (repo *activityRepository) RecordRating(ctx context.Context, r activity.Rating) (a activity.Answer, stored bool, err error) {
	err = inTx(ctx, repo.db, "recording rating", func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO answer_ratings (answer_id, rater_id, useful, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (answer_id, rater_id) DO NOTHING`),
			r.AnswerID, r.RaterID, r.Useful, r.CreatedAt,
		)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return activity.ErrAnswerNotFound
			}
			return database.StorageError("inserting rating", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return database.StorageError("inserting rating", err)
		}

		if stored = n > 0; stored {
			if _, err = incrementAnswer(ctx, tx, r.AnswerID, r.Counters(1)); err != nil {
				return database.StorageError("counting rating", err)
			}
		}
		a, err = selectAnswer(ctx, tx, r.AnswerID)
		return err
	})
	if err != nil {
		return activity.Answer{}, false, err
	}
	return a, stored, nil
}

func (repo *activityRepository) RemoveRating(ctx context.Context, r activity.Rating) (a activity.Answer, err error) {
	err = inTx(ctx, repo.db, "removing rating", func(tx *sqlx.Tx) error {
		var useful bool
		err := tx.QueryRowxContext(ctx,
			tx.Rebind(`DELETE FROM answer_ratings WHERE answer_id = ? AND rater_id = ? RETURNING useful`),
			r.AnswerID, r.RaterID,
		).Scan(&useful)

		switch {
		case err == nil:
			withdrawn := activity.Rating{Useful: useful}
			if _, err = incrementAnswer(ctx, tx, r.AnswerID, withdrawn.Counters(-1)); err != nil {
				return database.StorageError("uncounting rating", err)
			}
		case !errors.Is(err, sql.ErrNoRows):
			return database.StorageError("deleting rating", err)
		}
		a, err = selectAnswer(ctx, tx, r.AnswerID)
		return err
	})
	return a, err
}

// SaveGrade first tries to insert the grade; a concurrent insert of the same key makes it wait and
// fall back to the update path. On postgres the previous grade is read with a row lock, so concurrent
// re-grades are applied one after the other. Sqlite allows a single writer at a time.
func (repo *activityRepository) SaveGrade(ctx context.Context, s activity.Submission) (_ activity.Submission, prevPoints int, err error) {
	err = inTx(ctx, repo.db, "saving grade", func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO submissions (`+submissionColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (entity_id, student_id) DO NOTHING`),
			s.ID, s.EntityID, s.Kind, s.StudentID, s.Score, s.MaxScore, s.Feedback, s.PointsAwarded, s.GradedAt,
		)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return account.ErrNotFound
			}
			return database.StorageError("inserting grade", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return database.StorageError("inserting grade", err)
		}
		if n > 0 {
			return nil
		}

		query := `SELECT id, points_awarded FROM submissions WHERE entity_id = ? AND student_id = ?`
		if repo.db.DriverName() == database.EnginePostgres {
			query += ` FOR UPDATE`
		}
		var prev struct {
			ID            string `db:"id"`
			PointsAwarded int    `db:"points_awarded"`
		}
		if err = tx.QueryRowxContext(ctx, tx.Rebind(query), s.EntityID, s.StudentID).StructScan(&prev); err != nil {
			return database.StorageError("selecting previous grade", err)
		}

		s.ID = prev.ID
		prevPoints = prev.PointsAwarded
		if prevPoints > s.PointsAwarded {
			s.PointsAwarded = prevPoints
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE submissions SET
				kind = ?, score = ?, max_score = ?, feedback = ?, points_awarded = ?, graded_at = ?
			WHERE id = ?`),
			s.Kind, s.Score, s.MaxScore, s.Feedback, s.PointsAwarded, s.GradedAt, s.ID,
		)
		return database.StorageError("updating grade", err)
	})
	if err != nil {
		return activity.Submission{}, 0, err
	}
	return s, prevPoints, nil
}

func (repo *activityRepository) GetSubmission(ctx context.Context, entityID, studentID string) (activity.Submission, error) {
	var s activity.Submission
	query := repo.db.Rebind(`SELECT ` + submissionColumns + ` FROM submissions WHERE entity_id = ? AND student_id = ?`)
	err := repo.db.QueryRowxContext(ctx, query, entityID, studentID).Scan(
		&s.ID, &s.EntityID, &s.Kind, &s.StudentID, &s.Score, &s.MaxScore, &s.Feedback, &s.PointsAwarded, &s.GradedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return activity.Submission{}, activity.ErrSubmissionNotFound
		}
		return activity.Submission{}, database.StorageError("selecting submission", err)
	}
	s.GradedAt = s.GradedAt.UTC()
	return s, nil
}
