package account

import "time"

type Counter string

const (
	CounterTotalAnswers   Counter = "totalAnswers"
	CounterHelpfulAnswers Counter = "helpfulAnswers"
)

// BadgeRule awards a badge once Counter reaches Threshold.
type BadgeRule struct {
	Counter     Counter
	Threshold   int
	Name        string
	Description string
	Icon        string
}

func (r BadgeRule) badge(at time.Time) Badge {
	return Badge{Name: r.Name, Description: r.Description, Icon: r.Icon, AwardedAt: at}
}

var BadgeRules = []BadgeRule{
	{Counter: CounterTotalAnswers, Threshold: 1, Name: "first answer", Description: "Posted a first answer", Icon: "spark"},
	{Counter: CounterTotalAnswers, Threshold: 10, Name: "active helper", Description: "Posted 10 answers", Icon: "flame"},
	{Counter: CounterTotalAnswers, Threshold: 50, Name: "trusted helper", Description: "Posted 50 answers", Icon: "shield"},
	{Counter: CounterHelpfulAnswers, Threshold: 5, Name: "helpful answers", Description: "5 answers marked useful", Icon: "thumbs-up"},
	{Counter: CounterHelpfulAnswers, Threshold: 20, Name: "helper ambassador", Description: "20 answers marked useful", Icon: "trophy"},
}

func (a Account) counter(c Counter) int {
	switch c {
	case CounterTotalAnswers:
		return a.TotalAnswers
	case CounterHelpfulAnswers:
		return a.HelpfulAnswers
	}
	return 0
}

// pendingBadges lists the rules on the changed counters that acc has reached but not been awarded yet.
// A reached threshold stays pending until its badge is stored, so a failed append is retried on the next mutation.
func pendingBadges(acc Account, changed ...Counter) []BadgeRule {
	var rules []BadgeRule
	for _, c := range changed {
		for _, rule := range BadgeRules {
			if rule.Counter == c && acc.counter(c) >= rule.Threshold && !acc.HasBadge(rule.Name) {
				rules = append(rules, rule)
			}
		}
	}
	return rules
}
