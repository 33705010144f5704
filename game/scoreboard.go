package game

import (
	"cmp"
	"slices"
)

func sortMembers(members []*member) {
	slices.SortFunc(members, func(a, b *member) int {
		return cmp.Compare(a.seq, b.seq)
	})
}

// buildScoreboard ranks every known participant profile. It never mutates
// the room.
func buildScoreboard(r *Room) []ScoreboardEntry {
	if r.arena == nil || r.problemSet == nil {
		return []ScoreboardEntry{}
	}

	online := map[string]bool{}
	for _, m := range r.members {
		online[m.identity.UserID] = true
	}

	entries := make([]ScoreboardEntry, 0, len(r.participantProfiles))
	for userID, profile := range r.participantProfiles {
		entry := ScoreboardEntry{
			UserID:     userID,
			Username:   profile.Username,
			IsOnline:   online[userID],
			PerProblem: make([]ProblemProgressView, 0, len(r.problemSet.ids)),
		}

		p := r.arena.participants[userID]
		var latestSolve int64
		for _, id := range r.problemSet.ids {
			var ps *problemState
			if p != nil {
				ps = p.problems[id]
			}
			if ps != nil && ps.solved() {
				latestSolve = max(latestSolve, ps.solvedAt.Sub(r.arena.startedAt).Milliseconds())
			}
			entry.PerProblem = append(entry.PerProblem, progressView(id, ps))
		}

		if p != nil {
			entry.SolvedCount = p.solvedCount
			entry.PenaltyMs = p.penaltyMs
			entry.WrongSubmissions = p.wrongSubmissions
			entry.Submissions = p.submissions
		}
		entry.PenaltySeconds = entry.PenaltyMs / 1000
		entry.EffectiveTimeMs = entry.PenaltyMs + max(0, latestSolve)
		entries = append(entries, entry)
	}

	slices.SortFunc(entries, compareEntries)
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// compareEntries falls back to the user id so that two participants sharing
// a display name still order deterministically.
func compareEntries(a, b ScoreboardEntry) int {
	return cmp.Or(
		cmp.Compare(b.SolvedCount, a.SolvedCount),
		cmp.Compare(a.EffectiveTimeMs, b.EffectiveTimeMs),
		cmp.Compare(a.WrongSubmissions, b.WrongSubmissions),
		cmp.Compare(a.Username, b.Username),
		cmp.Compare(a.UserID, b.UserID),
	)
}
