package dummydb

import (
	"context"

	"github.com/ahmedramy514/khadamli-darasi/core/activity"
)

type (
	ratingKey struct {
		answerID string
		raterID  string
	}

	submissionKey struct {
		entityID  string
		studentID string
	}

	activityRepository struct {
		db *activityTables
	}
)

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *DB) activity.Repository {
	return &activityRepository{db: db.activity}
}

func (repo *activityRepository) CreateQuestion(_ context.Context, q activity.Question) (activity.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *activityRepository) GetQuestionByID(_ context.Context, id string) (activity.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if q, ok := repo.db.questions[id]; ok {
		return *q, nil
	}
	return activity.Question{}, activity.ErrQuestionNotFound
}

func (repo *activityRepository) CreateAnswer(_ context.Context, a activity.Answer) (activity.Answer, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.questions[a.QuestionID]; !ok {
		return activity.Answer{}, activity.ErrQuestionNotFound
	}
	repo.db.answers[a.ID] = &a
	return a, nil
}

func (repo *activityRepository) GetAnswerByID(_ context.Context, questionID, answerID string) (activity.Answer, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.answers[answerID]; ok && a.QuestionID == questionID {
		return *a, nil
	}
	return activity.Answer{}, activity.ErrAnswerNotFound
}

func (repo *activityRepository) IncrementAnswerCounters(_ context.Context, answerID string, delta activity.AnswerCounters) (activity.Answer, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	return repo.increment(answerID, delta)
}

// increment expects the write lock to be held.
func (repo *activityRepository) increment(answerID string, delta activity.AnswerCounters) (activity.Answer, error) {
	a, ok := repo.db.answers[answerID]
	if !ok {
		return activity.Answer{}, activity.ErrAnswerNotFound
	}
	a.Likes += delta.Likes
	a.UsefulCount += delta.Useful
	a.NotUsefulCount += delta.NotUseful
	return *a, nil
}

func (repo *activityRepository) RecordRating(_ context.Context, r activity.Rating) (activity.Answer, bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := ratingKey{answerID: r.AnswerID, raterID: r.RaterID}
	if _, ok := repo.db.ratings[key]; ok {
		a, err := repo.increment(r.AnswerID, activity.AnswerCounters{})
		return a, false, err
	}
	a, err := repo.increment(r.AnswerID, r.Counters(1))
	if err != nil {
		return activity.Answer{}, false, err
	}
	repo.db.ratings[key] = r
	return a, true, nil
}

func (repo *activityRepository) RemoveRating(_ context.Context, r activity.Rating) (activity.Answer, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := ratingKey{answerID: r.AnswerID, raterID: r.RaterID}
	stored, ok := repo.db.ratings[key]
	if !ok {
		return repo.increment(r.AnswerID, activity.AnswerCounters{})
	}
	delete(repo.db.ratings, key)
	return repo.increment(r.AnswerID, stored.Counters(-1))
}

func (repo *activityRepository) SaveGrade(_ context.Context, s activity.Submission) (activity.Submission, int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := submissionKey{entityID: s.EntityID, studentID: s.StudentID}
	var prevPoints int
	if prev, ok := repo.db.submissions[key]; ok {
		s.ID = prev.ID
		prevPoints = prev.PointsAwarded
		if prevPoints > s.PointsAwarded {
			s.PointsAwarded = prevPoints
		}
	}
	repo.db.submissions[key] = &s
	return s, prevPoints, nil
}

func (repo *activityRepository) GetSubmission(_ context.Context, entityID, studentID string) (activity.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.submissions[submissionKey{entityID: entityID, studentID: studentID}]; ok {
		return *s, nil
	}
	return activity.Submission{}, activity.ErrSubmissionNotFound
}
