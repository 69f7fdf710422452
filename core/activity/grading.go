package activity

// CorrectAssignmentPoints is awarded for a pass/fail assignment marked correct.
const CorrectAssignmentPoints = 10

// gradeTiers is ordered from the highest minimum percentage to the lowest.
var gradeTiers = []struct {
	minPercent float64
	points     int
}{
	{minPercent: 90, points: 20},
	{minPercent: 80, points: 15},
	{minPercent: 70, points: 10},
	{minPercent: 60, points: 5},
}

// GradePoints returns the points earned for score out of maxScore.
// Without a maxScore, a submission marked correct earns CorrectAssignmentPoints.
func GradePoints(score, maxScore float64, correct bool) int {
	if maxScore <= 0 {
		if correct {
			return CorrectAssignmentPoints
		}
		return 0
	}
	percent := score * 100 / maxScore
	for _, tier := range gradeTiers {
		if percent >= tier.minPercent {
			return tier.points
		}
	}
	return 0
}
