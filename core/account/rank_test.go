package account

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestRankFor(t *testing.T) {
	tests := []struct {
		points int
		want   Rank
	}{
		{points: 0, want: RankNovice},
		{points: 49, want: RankNovice},
		{points: 50, want: RankSilver},
		{points: 149, want: RankSilver},
		{points: 150, want: RankGold},
		{points: 299, want: RankGold},
		{points: 300, want: RankExpert},
		{points: 1000, want: RankExpert},
	}
	for _, tt := range tests {
		if got := RankFor(tt.points); got != tt.want {
			t.Errorf("RankFor(%d) = %q, want %q", tt.points, got, tt.want)
		}
	}
}

func TestNextRank(t *testing.T) {
	tests := []struct {
		points      int
		wantRank    Rank
		wantMissing int
	}{
		{points: 0, wantRank: RankSilver, wantMissing: 50},
		{points: 49, wantRank: RankSilver, wantMissing: 1},
		{points: 50, wantRank: RankGold, wantMissing: 100},
		{points: 299, wantRank: RankExpert, wantMissing: 1},
		{points: 300, wantRank: "", wantMissing: 0},
	}
	for _, tt := range tests {
		rank, missing := NextRank(tt.points)
		if rank != tt.wantRank || missing != tt.wantMissing {
			t.Errorf("NextRank(%d) = (%q, %d), want (%q, %d)", tt.points, rank, missing, tt.wantRank, tt.wantMissing)
		}
	}
}

func rankLevel(r Rank) int {
	for i, tier := range rankTiers {
		if tier.rank == r {
			return len(rankTiers) - i
		}
	}
	return 0
}

func TestRankForMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("more points never lower the rank", prop.ForAll(
		func(points, extra int) bool {
			return rankLevel(RankFor(points+extra)) >= rankLevel(RankFor(points))
		},
		gen.IntRange(0, 10000),
		gen.IntRange(0, 10000),
	))

	properties.TestingRun(t)
}

func TestPendingBadges(t *testing.T) {
	acc := Account{TotalAnswers: 10, HelpfulAnswers: 5}
	acc.Badges = []Badge{{Name: "first answer"}}

	var names []string
	for _, rule := range pendingBadges(acc, CounterTotalAnswers) {
		names = append(names, rule.Name)
	}
	if len(names) != 1 || names[0] != "active helper" {
		t.Errorf("pendingBadges(totalAnswers) = %v, want [active helper]", names)
	}

	// only the changed counters are evaluated
	if rules := pendingBadges(acc); len(rules) != 0 {
		t.Errorf("pendingBadges() = %v, want none", rules)
	}
	if rules := pendingBadges(acc, CounterHelpfulAnswers); len(rules) != 1 || rules[0].Name != "helpful answers" {
		t.Errorf("pendingBadges(helpfulAnswers) = %v, want [helpful answers]", rules)
	}
}
