package account

type Rank string

const (
	RankNovice Rank = "novice helper"
	RankSilver Rank = "silver helper"
	RankGold   Rank = "gold helper"
	RankExpert Rank = "expert helper"
)

// rankTiers is ordered from the highest minimum to the lowest.
var rankTiers = []struct {
	min  int
	rank Rank
}{
	{min: 300, rank: RankExpert},
	{min: 150, rank: RankGold},
	{min: 50, rank: RankSilver},
	{min: 0, rank: RankNovice},
}

// RankFor derives the rank of an account holding `points` total points.
func RankFor(points int) Rank {
	for _, tier := range rankTiers {
		if points >= tier.min {
			return tier.rank
		}
	}
	return RankNovice
}

// NextRank returns the rank that follows the one held at `points` and the points still missing to reach it.
// It returns an empty Rank at the top tier.
func NextRank(points int) (Rank, int) {
	for i := len(rankTiers) - 1; i >= 0; i-- {
		if tier := rankTiers[i]; points < tier.min {
			return tier.rank, tier.min - points
		}
	}
	return "", 0
}
