package app

import (
	"math"
	"sort"

	"quiz-proctor-service/internal/domain"
)

// rankOf is 1 plus the number of submissions with a strictly greater score,
// so equal scores share the same rank number.
func rankOf(score int, subs []domain.Submission) int {
	rank := 1
	for _, s := range subs {
		if s.Score > score {
			rank++
		}
	}
	return rank
}

// sortLeaderboard orders rows for display: score desc, then faster finishers,
// then name. Display-only; it does not define the rank number.
func sortLeaderboard(rows []domain.LeaderboardRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		if rows[i].TimeTaken != rows[j].TimeTaken {
			return rows[i].TimeTaken < rows[j].TimeTaken
		}
		return rows[i].Name < rows[j].Name
	})
}

// percentage rounds score/total to one decimal place; zero total yields zero.
func percentage(score, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(score)/float64(total)*1000) / 10
}
