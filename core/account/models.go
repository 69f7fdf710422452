package account

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/ahmedramy514/khadamli-darasi/core"
)

// Roles
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleHelper  = "helper"
)

var (
	Roles = []string{RoleStudent, RoleTeacher, RoleHelper}

	PasswordCost = bcrypt.DefaultCost // mockable
)

type Badge struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	AwardedAt   time.Time `json:"awarded_at"` // UTC
}

type Account struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Role            string    `json:"role"`
	PasswordHash    []byte    `json:"-"`
	Points          int       `json:"points"`
	WeeklyPoints    int       `json:"weekly_points"`
	TotalAnswers    int       `json:"total_answers"`
	HelpfulAnswers  int       `json:"helpful_answers"`
	Badges          []Badge   `json:"badges"`
	LastWeeklyReset time.Time `json:"last_weekly_reset"` // UTC
	CreatedAt       time.Time `json:"created_at"`        // UTC
	UpdatedAt       time.Time `json:"updated_at"`        // UTC
}

// Rank is always derived from the current points.
func (a Account) Rank() Rank {
	return RankFor(a.Points)
}

func (a Account) MarshalJSON() ([]byte, error) {
	type account Account
	badges := a.Badges
	if badges == nil {
		badges = []Badge{}
	}
	a.Badges = badges
	return json.Marshal(struct {
		account
		Rank Rank `json:"rank"`
	}{account: account(a), Rank: a.Rank()})
}

func (a Account) HasBadge(name string) bool {
	for _, b := range a.Badges {
		if b.Name == name {
			return true
		}
	}
	return false
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), PasswordCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a Account) IsTeacher() bool { return a.Role == RoleTeacher }

// Counters holds increments applied to an account in one atomic step.
type Counters struct {
	Points         int
	WeeklyPoints   int
	TotalAnswers   int
	HelpfulAnswers int
}

// NewAccount contains information needed to create a new Account.
type NewAccount struct {
	Name            string `json:"name" validate:"required,notblank"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,oneof=student teacher helper"`
}

func (na *NewAccount) Validate(validate *validator.Validate) error {
	na.Name = core.CleanString(na.Name)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Role = core.CleanString(na.Role, true /* lower */)
	if na.Role == "" {
		na.Role = RoleStudent
	}
	return validate.Struct(na)
}

type Period string

const (
	PeriodAllTime Period = "all"
	PeriodWeekly  Period = "weekly"
)

func (p Period) Valid() bool { return p == PeriodAllTime || p == PeriodWeekly }

// Score is one account's entry on a Scoreboard.
type Score struct {
	AccountID string
	Score     int
}

type LeaderboardEntry struct {
	Position  int    `json:"position"`
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Rank      Rank   `json:"rank"`
}

type Stats struct {
	Points         int  `json:"points"`
	WeeklyPoints   int  `json:"weekly_points"`
	TotalAnswers   int  `json:"total_answers"`
	HelpfulAnswers int  `json:"helpful_answers"`
	BadgeCount     int  `json:"badge_count"`
	Rank           Rank `json:"rank"`
	NextRank       Rank `json:"next_rank,omitempty"`
	PointsToNext   int  `json:"points_to_next"`
}
