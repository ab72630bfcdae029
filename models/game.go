package models

import "time"

// GameID identifies a game of chance
type GameID string

const (
	// GameIDPlinko is the multi-row probability-cascade game
	GameIDPlinko GameID = "plinko"
)

// RiskLevel selects a game's multiplier distribution. Higher risk skews
// payouts toward rarer, larger multipliers.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// Valid reports whether rl is a known risk level
func (rl RiskLevel) Valid() bool {
	return rl == RiskLevelLow || rl == RiskLevelMedium || rl == RiskLevelHigh
}

// GameResult is a session outcome
type GameResult string

const (
	GameResultWin  GameResult = "win"
	GameResultLose GameResult = "lose"
)

// PlinkoOutcome is the typed payload of one plinko drop. Path holds one
// 0/1 step per row (1 = right); FinalSlot is the count of right steps.
type PlinkoOutcome struct {
	RiskLevel  RiskLevel `json:"risk_level"`
	Rows       int       `json:"rows"`
	Path       []int     `json:"path"`
	FinalSlot  int       `json:"final_slot"`
	Multiplier float64   `json:"multiplier"`
}

// GameSession is one immutable play record
type GameSession struct {
	ID         string         `db:"id"`
	DiscordID  int64          `db:"discord_id"`
	GameID     GameID         `db:"game_id"`
	BetAmount  int64          `db:"bet_amount"`
	Result     GameResult     `db:"result"`
	WinAmount  int64          `db:"win_amount"`
	Multiplier float64        `db:"multiplier"`
	Outcome    *PlinkoOutcome `db:"outcome"`
	CreatedAt  time.Time      `db:"created_at"`
}

// PlayResult is returned to the caller after a game play
type PlayResult struct {
	SessionID  string
	Result     GameResult
	WinAmount  int64
	NewBalance int64
	Outcome    *PlinkoOutcome
}

// LeaderboardPeriod scopes a leaderboard query
type LeaderboardPeriod string

const (
	LeaderboardPeriodDaily  LeaderboardPeriod = "daily"
	LeaderboardPeriodWeekly LeaderboardPeriod = "weekly"
	LeaderboardPeriodAll    LeaderboardPeriod = "all"
)

// LeaderboardEntry is one row of a game leaderboard, ordered by net winnings
type LeaderboardEntry struct {
	Rank        int
	DiscordID   int64
	Username    string
	NetWinnings int64
}
