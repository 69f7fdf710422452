package dummydb

import (
	"context"
	"sort"

	"github.com/ahmedramy514/khadamli-darasi/core"
	"github.com/ahmedramy514/khadamli-darasi/core/account"
)

type accountRepository struct {
	db *accountTable
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db.account}
}

// copyAccount detaches the badge slice from the stored record.
func copyAccount(acc *account.Account) account.Account {
	cp := *acc
	cp.Badges = append([]account.Badge(nil), acc.Badges...)
	return cp
}

func (repo *accountRepository) CreateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, a := range repo.db.table {
		if a.Email == acc.Email {
			return account.Account{}, account.ErrEmailExists
		}
	}
	acc.Badges = nil
	repo.db.table[acc.ID] = &acc
	return copyAccount(&acc), nil
}

func (repo *accountRepository) GetAccountByID(_ context.Context, id string) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if acc, ok := repo.db.table[id]; ok {
		return copyAccount(acc), nil
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) GetAccountByEmail(_ context.Context, email string) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, acc := range repo.db.table {
		if acc.Email == email {
			return copyAccount(acc), nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) QueryAccountIDs(_ context.Context) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := make([]string, 0, len(repo.db.table))
	for id := range repo.db.table {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *accountRepository) TopAccounts(_ context.Context, period account.Period, limit int) ([]account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	accs := make([]account.Account, 0, len(repo.db.table))
	for _, acc := range repo.db.table {
		accs = append(accs, copyAccount(acc))
	}
	score := func(a account.Account) int {
		if period == account.PeriodWeekly {
			return a.WeeklyPoints
		}
		return a.Points
	}
	sort.Slice(accs, func(i, j int) bool {
		if si, sj := score(accs[i]), score(accs[j]); si != sj {
			return si > sj
		}
		return accs[i].CreatedAt.Before(accs[j].CreatedAt)
	})
	if limit > 0 && len(accs) > limit {
		accs = accs[:limit]
	}
	return accs, nil
}

func (repo *accountRepository) IncrementCounters(_ context.Context, id string, delta account.Counters) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	acc, ok := repo.db.table[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	acc.Points += delta.Points
	acc.WeeklyPoints += delta.WeeklyPoints
	acc.TotalAnswers += delta.TotalAnswers
	acc.HelpfulAnswers += delta.HelpfulAnswers
	acc.UpdatedAt = core.Now()
	return copyAccount(acc), nil
}

func (repo *accountRepository) AppendBadgeIfAbsent(_ context.Context, id string, badge account.Badge) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	acc, ok := repo.db.table[id]
	if !ok {
		return false, account.ErrNotFound
	}
	if acc.HasBadge(badge.Name) {
		return false, nil
	}
	acc.Badges = append(acc.Badges, badge)
	return true, nil
}

func (repo *accountRepository) ResetWeeklyPoints(_ context.Context, id string) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	acc, ok := repo.db.table[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	now := core.Now()
	acc.WeeklyPoints = 0
	acc.LastWeeklyReset = now
	acc.UpdatedAt = now
	return copyAccount(acc), nil
}
