package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ahmedramy514/khadamli-darasi/core"
	"github.com/ahmedramy514/khadamli-darasi/core/account"
	"github.com/ahmedramy514/khadamli-darasi/storage/database"
)

const accountColumns = `id, name, email, role, password_hash, points, weekly_points, total_answers,
	helpful_answers, last_weekly_reset, created_at, updated_at`

type (
	accountRow struct {
		ID              string    `db:"id"`
		Name            string    `db:"name"`
		Email           string    `db:"email"`
		Role            string    `db:"role"`
		PasswordHash    string    `db:"password_hash"`
		Points          int       `db:"points"`
		WeeklyPoints    int       `db:"weekly_points"`
		TotalAnswers    int       `db:"total_answers"`
		HelpfulAnswers  int       `db:"helpful_answers"`
		LastWeeklyReset time.Time `db:"last_weekly_reset"`
		CreatedAt       time.Time `db:"created_at"`
		UpdatedAt       time.Time `db:"updated_at"`
	}

	badgeRow struct {
		Name        string    `db:"name"`
		Description string    `db:"description"`
		Icon        string    `db:"icon"`
		AwardedAt   time.Time `db:"awarded_at"`
	}

	accountRepository struct {
		db *sqlx.DB
	}
)

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *sqlx.DB) account.Repository {
	return &accountRepository{db: db}
}

func (row accountRow) model(badges []badgeRow) account.Account {
	acc := account.Account{
		ID:              row.ID,
		Name:            row.Name,
		Email:           row.Email,
		Role:            row.Role,
		PasswordHash:    []byte(row.PasswordHash),
		Points:          row.Points,
		WeeklyPoints:    row.WeeklyPoints,
		TotalAnswers:    row.TotalAnswers,
		HelpfulAnswers:  row.HelpfulAnswers,
		LastWeeklyReset: row.LastWeeklyReset.UTC(),
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
	for _, b := range badges {
		acc.Badges = append(acc.Badges, account.Badge{
			Name:        b.Name,
			Description: b.Description,
			Icon:        b.Icon,
			AwardedAt:   b.AwardedAt.UTC(),
		})
	}
	return acc
}

func (repo *accountRepository) withBadges(ctx context.Context, row accountRow) (account.Account, error) {
	var badges []badgeRow
	q := repo.db.Rebind(`SELECT name, description, icon, awarded_at FROM account_badges
		WHERE account_id = ? ORDER BY awarded_at, name`)
	if err := repo.db.SelectContext(ctx, &badges, q, row.ID); err != nil {
		return account.Account{}, database.StorageError("selecting badges", err)
	}
	return row.model(badges), nil
}

// getOne runs a query returning a single account row.
func (repo *accountRepository) getOne(ctx context.Context, op, q string, args ...interface{}) (account.Account, error) {
	var row accountRow
	if err := repo.db.QueryRowxContext(ctx, repo.db.Rebind(q), args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, database.StorageError(op, err)
	}
	return repo.withBadges(ctx, row)
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	q := repo.db.Rebind(`INSERT INTO accounts (` + accountColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := repo.db.ExecContext(ctx, q,
		acc.ID, acc.Name, acc.Email, acc.Role, string(acc.PasswordHash),
		acc.Points, acc.WeeklyPoints, acc.TotalAnswers, acc.HelpfulAnswers,
		acc.LastWeeklyReset, acc.CreatedAt, acc.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, database.StorageError("inserting account", err)
	}
	acc.Badges = nil
	return acc, nil
}

func (repo *accountRepository) GetAccountByID(ctx context.Context, id string) (account.Account, error) {
	return repo.getOne(ctx, "selecting account", `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
}

func (repo *accountRepository) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	return repo.getOne(ctx, "selecting account", `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
}

func (repo *accountRepository) QueryAccountIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0)
	if err := repo.db.SelectContext(ctx, &ids, `SELECT id FROM accounts ORDER BY id`); err != nil {
		return nil, database.StorageError("selecting account ids", err)
	}
	return ids, nil
}

func (repo *accountRepository) TopAccounts(ctx context.Context, period account.Period, limit int) ([]account.Account, error) {
	column := "points"
	if period == account.PeriodWeekly {
		column = "weekly_points"
	}
	ordering := []core.DBOrdering{{Field: column}, {Field: "created_at", Ascending: true}}
	var rows []accountRow
	q := repo.db.Rebind(`SELECT ` + accountColumns + ` FROM accounts ORDER BY ` + orderBy(ordering) + ` LIMIT ?`)
	if err := repo.db.SelectContext(ctx, &rows, q, limit); err != nil {
		return nil, database.StorageError("selecting top accounts", err)
	}

	accs := make([]account.Account, 0, len(rows))
	for _, row := range rows {
		acc, err := repo.withBadges(ctx, row)
		if err != nil {
			return nil, err
		}
		accs = append(accs, acc)
	}
	return accs, nil
}

// update applies set to the account and returns it as the update left it.
func (repo *accountRepository) update(ctx context.Context, op, id, set string, args ...interface{}) (account.Account, error) {
	var row accountRow
	err := updateThenSelect(ctx, repo.db, op,
		func(tx *sqlx.Tx) (sql.Result, error) {
			return tx.ExecContext(ctx, tx.Rebind(`UPDATE accounts SET `+set+` WHERE id = ?`), append(args, id)...)
		},
		func(tx *sqlx.Tx) error {
			q := tx.Rebind(`SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`)
			return database.StorageError("selecting account", tx.QueryRowxContext(ctx, q, id).StructScan(&row))
		},
	)
	if err != nil {
		if errors.Is(err, errNoRowsUpdated) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, err
	}
	return repo.withBadges(ctx, row)
}

func (repo *accountRepository) IncrementCounters(ctx context.Context, id string, delta account.Counters) (account.Account, error) {
	return repo.update(ctx, "incrementing counters", id, `
			points = points + ?,
			weekly_points = weekly_points + ?,
			total_answers = total_answers + ?,
			helpful_answers = helpful_answers + ?,
			updated_at = ?`,
		delta.Points, delta.WeeklyPoints, delta.TotalAnswers, delta.HelpfulAnswers, time.Now().UTC(),
	)
}

func (repo *accountRepository) AppendBadgeIfAbsent(ctx context.Context, id string, badge account.Badge) (bool, error) {
	q := repo.db.Rebind(`INSERT INTO account_badges (account_id, name, description, icon, awarded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (account_id, name) DO NOTHING`)
	res, err := repo.db.ExecContext(ctx, q, id, badge.Name, badge.Description, badge.Icon, badge.AwardedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return false, account.ErrNotFound
		}
		return false, database.StorageError("inserting badge", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, database.StorageError("inserting badge", err)
	}
	return n > 0, nil
}

func (repo *accountRepository) ResetWeeklyPoints(ctx context.Context, id string) (account.Account, error) {
	now := time.Now().UTC()
	return repo.update(ctx, "resetting weekly points", id, `weekly_points = 0, last_weekly_reset = ?, updated_at = ?`, now, now)
}
