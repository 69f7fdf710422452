package account

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ahmedramy514/khadamli-darasi/core"
)

var (
	// errors
	ErrNotFound           = errors.New("account not found")
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrInvalidAmount      = errors.New("amount must be a positive integer")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const (
	AnswerPoints      = 10
	HelpfulMarkPoints = 5

	AllTimeLeaderboardSize = 50
	WeeklyLeaderboardSize  = 10
)

type (
	Repository interface {
		// CreateAccount stores acc (badges excluded); returns ErrEmailExists on duplicate emails.
		CreateAccount(ctx context.Context, acc Account) (Account, error)
		GetAccountByID(ctx context.Context, id string) (Account, error)
		GetAccountByEmail(ctx context.Context, email string) (Account, error)
		QueryAccountIDs(ctx context.Context) ([]string, error)
		// TopAccounts returns accounts ordered by the period score, highest first.
		TopAccounts(ctx context.Context, period Period, limit int) ([]Account, error)
		// IncrementCounters atomically adds delta to the account and returns it updated.
		IncrementCounters(ctx context.Context, id string, delta Counters) (Account, error)
		// AppendBadgeIfAbsent atomically appends badge unless the account already holds one with the same name.
		AppendBadgeIfAbsent(ctx context.Context, id string, badge Badge) (bool, error)
		ResetWeeklyPoints(ctx context.Context, id string) (Account, error)
	}

	// Scoreboard is a ranking cache kept in sync with account points.
	Scoreboard interface {
		SetScores(ctx context.Context, accountID string, points, weeklyPoints int) error
		Top(ctx context.Context, period Period, limit int) ([]Score, error)
	}

	// Service is the account ledger: the only writer of points, counters and badges.
	Service struct {
		repo   Repository
		board  Scoreboard
		locks  *core.KeyedMutex
		logger core.Logger
	}
)

func NewService(repo Repository, board Scoreboard, logger core.Logger) *Service {
	return &Service{
		repo:   repo,
		board:  board,
		locks:  core.NewKeyedMutex(),
		logger: logger,
	}
}

func (svc *Service) Create(ctx context.Context, na NewAccount) (Account, error) {
	now := core.Now()
	acc := Account{
		ID:              uuid.New().String(),
		Name:            na.Name,
		Email:           na.Email,
		Role:            na.Role,
		LastWeeklyReset: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := acc.SetPassword(na.Password); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}

	err := core.Retry(ctx, func() (err error) {
		acc, err = svc.repo.CreateAccount(ctx, acc)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return Account{}, core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return Account{}, errors.Wrap(err, "creating account")
	}
	svc.syncScoreboard(ctx, acc)
	return acc, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Account, error) {
	var acc Account
	err := core.Retry(ctx, func() (err error) {
		acc, err = svc.repo.GetAccountByID(ctx, id)
		return err
	})
	return acc, err
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	var acc Account
	err := core.Retry(ctx, func() (err error) {
		acc, err = svc.repo.GetAccountByEmail(ctx, core.CleanString(email, true /* lower */))
		return err
	})
	return acc, err
}

func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (Account, error) {
	acc, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, errors.Wrap(err, "finding account by email")
	}
	if err = acc.CheckPassword(pwd); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return acc, nil
}

// mutate applies delta to the account then awards the badges reached on the changed counters.
// Mutations of one account are serialized.
func (svc *Service) mutate(ctx context.Context, id string, delta Counters, changed ...Counter) (Account, []Badge, error) {
	unlock := svc.locks.Lock(id)
	defer unlock()

	var acc Account
	err := core.Retry(ctx, func() (err error) {
		acc, err = svc.repo.IncrementCounters(ctx, id, delta)
		return err
	})
	if err != nil {
		return Account{}, nil, errors.Wrap(err, "incrementing counters")
	}

	var earned []Badge
	for _, rule := range pendingBadges(acc, changed...) {
		badge := rule.badge(core.Now())
		added, err := svc.appendBadge(ctx, id, badge)
		if err != nil {
			// counters are stored already; the badge stays pending until the next mutation
			svc.logger.Error(fmt.Sprintf("awarding badge %q to %s: %v", badge.Name, id, err), err)
			continue
		}
		if added {
			acc.Badges = append(acc.Badges, badge)
			earned = append(earned, badge)
		}
	}

	svc.syncScoreboard(ctx, acc)
	return acc, earned, nil
}

func (svc *Service) appendBadge(ctx context.Context, id string, badge Badge) (bool, error) {
	var added bool
	err := core.Retry(ctx, func() (err error) {
		added, err = svc.repo.AppendBadgeIfAbsent(ctx, id, badge)
		return err
	})
	return added, err
}

// AwardPoints adds amount to the total points, and to the weekly points if weeklyToo.
func (svc *Service) AwardPoints(ctx context.Context, id string, amount int, weeklyToo bool) (Account, error) {
	if amount <= 0 {
		return Account{}, ErrInvalidAmount
	}
	delta := Counters{Points: amount}
	if weeklyToo {
		delta.WeeklyPoints = amount
	}
	acc, _, err := svc.mutate(ctx, id, delta)
	return acc, err
}

// RecordAnswer books a posted answer and returns the badges it earned.
func (svc *Service) RecordAnswer(ctx context.Context, id string) (Account, []Badge, error) {
	delta := Counters{Points: AnswerPoints, WeeklyPoints: AnswerPoints, TotalAnswers: 1}
	return svc.mutate(ctx, id, delta, CounterTotalAnswers)
}

// RecordHelpfulMark books an answer of the account being marked useful by someone else.
func (svc *Service) RecordHelpfulMark(ctx context.Context, id string) (Account, []Badge, error) {
	delta := Counters{Points: HelpfulMarkPoints, WeeklyPoints: HelpfulMarkPoints, HelpfulAnswers: 1}
	return svc.mutate(ctx, id, delta, CounterHelpfulAnswers)
}

// AwardBadge appends a badge unless the account already holds one with the same name.
func (svc *Service) AwardBadge(ctx context.Context, id, name, description, icon string) (bool, error) {
	name = core.CleanString(name)
	if name == "" {
		return false, core.NewValidationError(nil, core.FieldError{Field: "name", Error: "this field is required"})
	}

	unlock := svc.locks.Lock(id)
	defer unlock()

	badge := Badge{Name: name, Description: description, Icon: icon, AwardedAt: core.Now()}
	added, err := svc.appendBadge(ctx, id, badge)
	if err != nil {
		return false, errors.Wrap(err, "appending badge")
	}
	return added, nil
}

// ResetWeeklyPoints zeroes the weekly points of one account.
func (svc *Service) ResetWeeklyPoints(ctx context.Context, id string) error {
	_, err := svc.resetWeekly(ctx, id, time.Time{})
	return err
}

// resetWeekly zeroes the weekly points of id. With a non zero weekStart, accounts already
// reset at or after weekStart are left alone and false is returned.
func (svc *Service) resetWeekly(ctx context.Context, id string, weekStart time.Time) (bool, error) {
	unlock := svc.locks.Lock(id)
	defer unlock()

	if !weekStart.IsZero() {
		acc, err := svc.GetByID(ctx, id)
		if err != nil {
			return false, errors.Wrap(err, "finding account")
		}
		if !acc.LastWeeklyReset.Before(weekStart) {
			return false, nil
		}
	}

	var acc Account
	err := core.Retry(ctx, func() (err error) {
		acc, err = svc.repo.ResetWeeklyPoints(ctx, id)
		return err
	})
	if err != nil {
		return false, errors.Wrap(err, "resetting weekly points")
	}
	// each reset account rewrites its own weekly score; the weekly ranking is never cleared as a whole
	svc.syncScoreboard(ctx, acc)
	return true, nil
}

func (svc *Service) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := core.Retry(ctx, func() (err error) {
		ids, err = svc.repo.QueryAccountIDs(ctx)
		return err
	})
	return ids, errors.Wrap(err, "querying account ids")
}

// ResetAllWeeklyPoints runs the weekly reset for every account and returns how many were reset.
func (svc *Service) ResetAllWeeklyPoints(ctx context.Context) (int, error) {
	return svc.resetAllWeekly(ctx, time.Time{})
}

// ResetStaleWeeklyPoints resets the accounts not reset since weekStart and returns how many were reset.
// Running it again for the same week is a no-op.
func (svc *Service) ResetStaleWeeklyPoints(ctx context.Context, weekStart time.Time) (int, error) {
	return svc.resetAllWeekly(ctx, weekStart)
}

func (svc *Service) resetAllWeekly(ctx context.Context, weekStart time.Time) (int, error) {
	ids, err := svc.ListIDs(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	for _, id := range ids {
		reset, err := svc.resetWeekly(ctx, id, weekStart)
		if err != nil {
			if errors.Is(err, ErrNotFound) { // deleted meanwhile
				continue
			}
			return count, err
		}
		if reset {
			count++
		}
	}
	return count, nil
}

func (svc *Service) syncScoreboard(ctx context.Context, acc Account) {
	if svc.board == nil {
		return
	}
	if err := svc.board.SetScores(ctx, acc.ID, acc.Points, acc.WeeklyPoints); err != nil {
		svc.logger.Warn(fmt.Sprintf("updating scoreboard of %s: %v", acc.ID, err), err)
	}
}

// RebuildScoreboard reloads the scoreboard from storage, e.g. after the cache was flushed.
func (svc *Service) RebuildScoreboard(ctx context.Context) (int, error) {
	if svc.board == nil {
		return 0, nil
	}
	ids, err := svc.ListIDs(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	for _, id := range ids {
		acc, err := svc.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return count, err
		}
		if err = svc.board.SetScores(ctx, acc.ID, acc.Points, acc.WeeklyPoints); err != nil {
			return count, errors.Wrap(err, "setting scores")
		}
		count++
	}
	return count, nil
}

// Leaderboard ranks accounts by points (PeriodAllTime) or weekly points (PeriodWeekly).
// A limit <= 0 uses the period default.
func (svc *Service) Leaderboard(ctx context.Context, period Period, limit int) ([]LeaderboardEntry, error) {
	if !period.Valid() {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "period", Error: "must be one of: all, weekly"})
	}
	if limit <= 0 {
		limit = AllTimeLeaderboardSize
		if period == PeriodWeekly {
			limit = WeeklyLeaderboardSize
		}
	}

	if svc.board != nil {
		entries, err := svc.leaderboardFromScoreboard(ctx, period, limit)
		if err == nil {
			return entries, nil
		}
		svc.logger.Warn(fmt.Sprintf("reading scoreboard: %v", err), err)
	}

	var accs []Account
	err := core.Retry(ctx, func() (err error) {
		accs, err = svc.repo.TopAccounts(ctx, period, limit)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying top accounts")
	}

	entries := make([]LeaderboardEntry, 0, len(accs))
	for i, acc := range accs {
		score := acc.Points
		if period == PeriodWeekly {
			score = acc.WeeklyPoints
		}
		entries = append(entries, LeaderboardEntry{
			Position:  i + 1,
			AccountID: acc.ID,
			Name:      acc.Name,
			Score:     score,
			Rank:      acc.Rank(),
		})
	}
	return entries, nil
}

func (svc *Service) leaderboardFromScoreboard(ctx context.Context, period Period, limit int) ([]LeaderboardEntry, error) {
	scores, err := svc.board.Top(ctx, period, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, 0, len(scores))
	for _, s := range scores {
		acc, err := svc.GetByID(ctx, s.AccountID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		entries = append(entries, LeaderboardEntry{
			Position:  len(entries) + 1,
			AccountID: acc.ID,
			Name:      acc.Name,
			Score:     s.Score,
			Rank:      acc.Rank(),
		})
	}
	return entries, nil
}

func (svc *Service) Badges(ctx context.Context, id string) ([]Badge, error) {
	acc, err := svc.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if acc.Badges == nil {
		return []Badge{}, nil
	}
	return acc.Badges, nil
}

func (svc *Service) Stats(ctx context.Context, id string) (Stats, error) {
	acc, err := svc.GetByID(ctx, id)
	if err != nil {
		return Stats{}, err
	}
	next, missing := NextRank(acc.Points)
	return Stats{
		Points:         acc.Points,
		WeeklyPoints:   acc.WeeklyPoints,
		TotalAnswers:   acc.TotalAnswers,
		HelpfulAnswers: acc.HelpfulAnswers,
		BadgeCount:     len(acc.Badges),
		Rank:           acc.Rank(),
		NextRank:       next,
		PointsToNext:   missing,
	}, nil
}
