package progress

import "sort"

// neverActive is reported for users whose record predates lastActive
// tracking. Registration always stamps lastActive, so in practice this only
// shows up for hand-edited data files.
const neverActive = "Never"

// BuildLeaderboard assembles the friends leaderboard from a full snapshot
// of the user mapping. Every user is included (the requesting user too),
// ordered by most recently active first. lastActive values are RFC 3339
// strings, so plain string comparison orders them chronologically; ties
// keep the snapshot's order (the sort is stable, no secondary key).
func BuildLeaderboard(users []UserRecord) []FriendSummary {
	friends := make([]FriendSummary, 0, len(users))
	for _, user := range users {
		stats := AggregateStats(user.Sessions)
		lastActive := user.LastActive
		if lastActive == "" {
			lastActive = neverActive
		}
		friends = append(friends, FriendSummary{
			Username:       user.Username,
			TotalSessions:  len(user.Sessions),
			TotalQuestions: stats.TotalQuestions,
			TotalCorrect:   stats.TotalCorrect,
			Accuracy:       stats.Accuracy,
			BestStreak:     stats.BestStreak,
			LastActive:     lastActive,
		})
	}

	sort.SliceStable(friends, func(i, j int) bool {
		return friends[i].LastActive > friends[j].LastActive
	})

	return friends
}
