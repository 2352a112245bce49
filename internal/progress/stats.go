package progress

import "math"

// AggregateStats folds a user's session list into summary statistics: total
// questions, total correct answers, the best streak seen in any session,
// and an integer accuracy percentage (rounded half away from zero, 0 when
// no questions were answered).
//
// Pure function: the input is never mutated. Malformed sessions where
// correct exceeds totalQuestions are summed as-is, not clamped.
func AggregateStats(sessions []SessionRecord) Stats {
	var stats Stats
	for _, session := range sessions {
		stats.TotalQuestions += session.TotalQuestions
		stats.TotalCorrect += session.Correct
		if session.MaxStreak > stats.BestStreak {
			stats.BestStreak = session.MaxStreak
		}
	}
	if stats.TotalQuestions > 0 {
		ratio := float64(stats.TotalCorrect) / float64(stats.TotalQuestions)
		stats.Accuracy = int(math.Round(ratio * 100))
	}
	return stats
}
