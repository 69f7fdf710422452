package activity_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmedramy514/khadamli-darasi/core/account"
	"github.com/ahmedramy514/khadamli-darasi/core/activity"
	"github.com/ahmedramy514/khadamli-darasi/core/notification"
	dummydb "github.com/ahmedramy514/khadamli-darasi/storage/database/dummy"
	testutil "github.com/ahmedramy514/khadamli-darasi/tests"
)

// stubLedger fails the ledger operations it has an error for.
type stubLedger struct {
	activity.Ledger
	awardErr   error
	helpfulErr error
}

func (l *stubLedger) AwardPoints(ctx context.Context, id string, amount int, weeklyToo bool) (account.Account, error) {
	if l.awardErr != nil {
		return account.Account{}, l.awardErr
	}
	return l.Ledger.AwardPoints(ctx, id, amount, weeklyToo)
}

func (l *stubLedger) RecordHelpfulMark(ctx context.Context, id string) (account.Account, []account.Badge, error) {
	if l.helpfulErr != nil {
		return account.Account{}, nil, l.helpfulErr
	}
	return l.Ledger.RecordHelpfulMark(ctx, id)
}

type testEnv struct {
	accounts      *account.Service
	notifications *notification.Service
	ledger        *stubLedger
	repo          activity.Repository
	svc           *activity.Service

	asker, helper, teacher account.Account
	question               activity.Question
}

func setup(t *testing.T, policy activity.RatingPolicy) *testEnv {
	t.Helper()
	db := dummydb.Open()
	logger := testutil.NewLogger()

	env := &testEnv{}
	env.accounts = account.NewService(dummydb.NewAccountRepository(db), nil, logger)
	env.notifications = notification.NewService(dummydb.NewNotificationRepository(db), nil, logger)
	env.ledger = &stubLedger{Ledger: env.accounts}
	env.repo = dummydb.NewActivityRepository(db)
	env.svc = activity.NewService(env.repo, env.ledger, env.notifications, policy, logger)

	env.asker = testutil.CreateAccount(t, env.accounts, "Asker", "asker@test.cd", account.RoleStudent)
	env.helper = testutil.CreateAccount(t, env.accounts, "Helper", "helper@test.cd", account.RoleHelper)
	env.teacher = testutil.CreateAccount(t, env.accounts, "Teacher", "teacher@test.cd", account.RoleTeacher)

	q, err := env.svc.AskQuestion(context.Background(), env.asker.ID, activity.NewQuestion{Title: "What is a monad?"})
	require.NoError(t, err)
	env.question = q
	return env
}

func (env *testEnv) account(t *testing.T, id string) account.Account {
	t.Helper()
	acc, err := env.accounts.GetByID(context.Background(), id)
	require.NoError(t, err)
	return acc
}

func (env *testEnv) notificationTypes(t *testing.T, id string) []notification.Type {
	t.Helper()
	ns, err := env.notifications.List(context.Background(), id)
	require.NoError(t, err)
	types := make([]notification.Type, 0, len(ns))
	for _, n := range ns {
		types = append(types, n.Type)
	}
	return types
}

func (env *testEnv) answer(t *testing.T, authorID string) activity.Answer {
	t.Helper()
	res, err := env.svc.SubmitAnswer(context.Background(), env.question.ID, authorID, activity.NewAnswer{Text: "a burrito"})
	require.NoError(t, err)
	return res.Answer
}

func TestService_SubmitAnswer(t *testing.T) {
	env := setup(t, activity.RatingsUnique)
	ctx := context.Background()

	res, err := env.svc.SubmitAnswer(ctx, env.question.ID, env.helper.ID, activity.NewAnswer{Text: "a burrito"})
	require.NoError(t, err)
	assert.Equal(t, env.question.ID, res.Answer.QuestionID)
	assert.Equal(t, env.helper.ID, res.Answer.AuthorID)
	assert.Zero(t, res.Answer.Likes)
	if assert.Len(t, res.NewBadges, 1) {
		assert.Equal(t, "first answer", res.NewBadges[0].Name)
	}

	helper := env.account(t, env.helper.ID)
	assert.Equal(t, 1, helper.TotalAnswers)
	assert.Equal(t, account.AnswerPoints, helper.Points)
	assert.Equal(t, account.AnswerPoints, helper.WeeklyPoints)

	assert.Equal(t, []notification.Type{notification.TypeAnswer}, env.notificationTypes(t, env.asker.ID))
	assert.Equal(t, []notification.Type{notification.TypeBadge}, env.notificationTypes(t, env.helper.ID))

	// answering one's own question books the answer but notifies nobody else
	res, err = env.svc.SubmitAnswer(ctx, env.question.ID, env.asker.ID, activity.NewAnswer{Text: "self answer"})
	require.NoError(t, err)
	assert.Equal(t, 1, env.account(t, env.asker.ID).TotalAnswers)
	assert.ElementsMatch(t, []notification.Type{notification.TypeAnswer, notification.TypeBadge}, env.notificationTypes(t, env.asker.ID))

	_, err = env.svc.SubmitAnswer(ctx, "lol", env.helper.ID, activity.NewAnswer{Text: "x"})
	assert.True(t, errors.Is(err, activity.ErrQuestionNotFound))

	_, err = env.svc.SubmitAnswer(ctx, env.question.ID, "lol", activity.NewAnswer{Text: "x"})
	assert.True(t, errors.Is(err, account.ErrNotFound))
}

func TestService_LikeAnswer(t *testing.T) {
	env := setup(t, activity.RatingsUnique)
	ctx := context.Background()
	ans := env.answer(t, env.helper.ID)

	for i := 1; i <= 3; i++ {
		got, err := env.svc.LikeAnswer(ctx, env.question.ID, ans.ID)
		require.NoError(t, err)
		assert.Equal(t, i, got.Likes)
	}
	helper := env.account(t, env.helper.ID)
	assert.Equal(t, account.AnswerPoints, helper.Points)
	assert.Zero(t, helper.HelpfulAnswers)

	_, err := env.svc.LikeAnswer(ctx, "other-question", ans.ID)
	assert.True(t, errors.Is(err, activity.ErrAnswerNotFound))
}

func TestService_RateAnswer(t *testing.T) {
	env := setup(t, activity.RatingsUnique)
	ctx := context.Background()
	ans := env.answer(t, env.helper.ID)

	// self rating moves the counter only
	got, err := env.svc.RateAnswer(ctx, env.question.ID, ans.ID, env.helper.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsefulCount)
	helper := env.account(t, env.helper.ID)
	assert.Equal(t, account.AnswerPoints, helper.Points)
	assert.Zero(t, helper.HelpfulAnswers)

	// someone else's useful vote books a helpful mark
	got, err = env.svc.RateAnswer(ctx, env.question.ID, ans.ID, env.asker.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 2, got.UsefulCount)
	helper = env.account(t, env.helper.ID)
	assert.Equal(t, account.AnswerPoints+account.HelpfulMarkPoints, helper.Points)
	assert.Equal(t, account.AnswerPoints+account.HelpfulMarkPoints, helper.WeeklyPoints)
	assert.Equal(t, 1, helper.HelpfulAnswers)
	assert.Contains(t, env.notificationTypes(t, env.helper.ID), notification.TypeRating)

	// not useful never touches the ledger
	got, err = env.svc.RateAnswer(ctx, env.question.ID, ans.ID, env.teacher.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 2, got.UsefulCount)
	assert.Equal(t, 1, got.NotUsefulCount)
	assert.Equal(t, helper.Points, env.account(t, env.helper.ID).Points)

	// one vote per rater
	_, err = env.svc.RateAnswer(ctx, env.question.ID, ans.ID, env.asker.ID, true)
	assert.Equal(t, activity.ErrAlreadyRated, err)
	_, err = env.svc.RateAnswer(ctx, env.question.ID, ans.ID, env.asker.ID, false)
	assert.Equal(t, activity.ErrAlreadyRated, err)
	assert.Equal(t, helper.Points, env.account(t, env.helper.ID).Points)

	_, err = env.svc.RateAnswer(ctx, env.question.ID, "lol", env.asker.ID, true)
	assert.True(t, errors.Is(err, activity.ErrAnswerNotFound))
}

func TestService_RateAnswer_unlimited(t *testing.T) {
	env := setup(t, activity.RatingsUnlimited)
	ctx := context.Background()
	ans := env.answer(t, env.helper.ID)

	for i := 1; i <= 5; i++ {
		got, err := env.svc.RateAnswer(ctx, env.question.ID, ans.ID, env.asker.ID, true)
		require.NoError(t, err)
		assert.Equal(t, i, got.UsefulCount)
	}

	helper := env.account(t, env.helper.ID)
	assert.Equal(t, 5, helper.HelpfulAnswers)
	assert.Equal(t, account.AnswerPoints+5*account.HelpfulMarkPoints, helper.Points)
	assert.True(t, helper.HasBadge("helpful answers"))
}

func TestService_RateAnswer_authorGone(t *testing.T) {
	env := setup(t, activity.RatingsUnique)
	ctx := context.Background()
	ans := env.answer(t, env.helper.ID)

	env.ledger.helpfulErr = errors.Wrap(account.ErrNotFound, "incrementing counters")
	got, err := env.svc.RateAnswer(ctx, env.question.ID, ans.ID, env.asker.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsefulCount)

	env.ledger.helpfulErr = errors.New("boom")
	_, err = env.svc.RateAnswer(ctx, env.question.ID, ans.ID, env.teacher.ID, true)
	assert.Error(t, err)
}

func TestService_RateAnswer_helpfulMarkFails(t *testing.T) {
	tests := []struct {
		name   string
		policy activity.RatingPolicy
	}{
		{name: "unique", policy: activity.RatingsUnique},
		{name: "unlimited", policy: activity.RatingsUnlimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setup(t, tt.policy)
			ctx := context.Background()
			ans := env.answer(t, env.helper.ID)

			env.ledger.helpfulErr = errors.New("ledger unavailable")
			_, err := env.svc.RateAnswer(ctx, env.question.ID, ans.ID, env.asker.ID, true)
			assert.Error(t, err)

			stored, err := env.repo.GetAnswerByID(ctx, env.question.ID, ans.ID)
			require.NoError(t, err)
			assert.Zero(t, stored.UsefulCount, "failed vote must be withdrawn")

			env.ledger.helpfulErr = nil
			got, err := env.svc.RateAnswer(ctx, env.question.ID, ans.ID, env.asker.ID, true)
			require.NoError(t, err)
			assert.Equal(t, 1, got.UsefulCount)

			helper := env.account(t, env.helper.ID)
			assert.Equal(t, account.AnswerPoints+account.HelpfulMarkPoints, helper.Points)
			assert.Equal(t, 1, helper.HelpfulAnswers)
		})
	}
}

func TestService_GradeSubmission(t *testing.T) {
	env := setup(t, activity.RatingsUnique)
	ctx := context.Background()
	student := env.asker.ID

	grade := func(entityID string, score, maxScore float64, correct bool) (activity.Submission, error) {
		return env.svc.GradeSubmission(ctx, activity.GradeInput{
			EntityID:  entityID,
			Kind:      activity.KindExam,
			StudentID: student,
			Score:     score,
			MaxScore:  maxScore,
			Feedback:  "well done",
			Correct:   correct,
		})
	}

	tests := []struct {
		name       string
		entityID   string
		score      float64
		maxScore   float64
		correct    bool
		wantAward  int
		wantPoints int // on the submission
	}{
		{name: "95/100", entityID: "exam-1", score: 95, maxScore: 100, wantAward: 20, wantPoints: 20},
		{name: "65/100", entityID: "exam-2", score: 65, maxScore: 100, wantAward: 5, wantPoints: 5},
		{name: "40/100", entityID: "exam-3", score: 40, maxScore: 100, wantAward: 0, wantPoints: 0},
		{name: "0/100", entityID: "exam-4", score: 0, maxScore: 100, wantAward: 0, wantPoints: 0},
		{name: "regrade up", entityID: "exam-2", score: 85, maxScore: 100, wantAward: 10, wantPoints: 15},
		{name: "regrade down", entityID: "exam-1", score: 50, maxScore: 100, wantAward: 0, wantPoints: 20},
		{name: "correct assignment", entityID: "hw-1", correct: true, wantAward: activity.CorrectAssignmentPoints, wantPoints: activity.CorrectAssignmentPoints},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := env.account(t, student)

			sub, err := grade(tt.entityID, tt.score, tt.maxScore, tt.correct)
			require.NoError(t, err)
			assert.Equal(t, tt.score, sub.Score)
			assert.Equal(t, tt.wantPoints, sub.PointsAwarded)
			assert.False(t, sub.GradedAt.IsZero())

			after := env.account(t, student)
			assert.Equal(t, tt.wantAward, after.Points-before.Points)
			assert.Equal(t, tt.wantAward, after.WeeklyPoints-before.WeeklyPoints)

			stored, err := env.svc.Submission(ctx, tt.entityID, student)
			require.NoError(t, err)
			assert.Equal(t, sub, stored)
		})
	}

	assert.Contains(t, env.notificationTypes(t, student), notification.TypeGrade)

	_, err := env.svc.GradeSubmission(ctx, activity.GradeInput{EntityID: "exam-1", Kind: activity.KindExam, StudentID: "lol", Score: 1, MaxScore: 2})
	assert.True(t, errors.Is(err, account.ErrNotFound))

	_, err = env.svc.Submission(ctx, "exam-9", student)
	assert.True(t, errors.Is(err, activity.ErrSubmissionNotFound))
}

func TestService_GradeSubmission_ledgerFailure(t *testing.T) {
	env := setup(t, activity.RatingsUnique)
	ctx := context.Background()

	env.ledger.awardErr = errors.New("ledger down")
	sub, err := env.svc.GradeSubmission(ctx, activity.GradeInput{
		EntityID:  "exam-1",
		Kind:      activity.KindExam,
		StudentID: env.asker.ID,
		Score:     92,
		MaxScore:  100,
	})
	assert.Error(t, err)
	assert.Equal(t, 92.0, sub.Score)

	// the grade is recorded even though the points were not booked
	stored, err := env.svc.Submission(ctx, "exam-1", env.asker.ID)
	require.NoError(t, err)
	assert.Equal(t, 92.0, stored.Score)
	assert.Zero(t, env.account(t, env.asker.ID).Points)
}
