package app

const (
	// questionTimeLimit is the advisory per-question limit in seconds sent to
	// clients. There is no server-side timer; advancement is event-driven.
	questionTimeLimit = 15
	basePoints        = 100
	bonusPerSecond    = 10

	defaultMaxPlayers = 4
	minPlayersToStart = 2
)

// scoreAnswer maps a submission to a score delta. The label comparison is an
// exact, case-sensitive match. A correct answer earns the base points plus a
// bonus for each unused second, with the client-reported elapsed time clamped
// to [0, questionTimeLimit]. Elapsed time is trusted as reported; see the
// integrity note in DESIGN.md.
func scoreAnswer(submitted, correct string, elapsedSeconds int) int {
	if submitted != correct {
		return 0
	}
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}
	if elapsedSeconds > questionTimeLimit {
		elapsedSeconds = questionTimeLimit
	}
	return basePoints + (questionTimeLimit-elapsedSeconds)*bonusPerSecond
}
