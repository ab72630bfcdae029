package models

import (
	"time"
)

// PointType distinguishes the two balances a user holds
type PointType string

const (
	// PointTypeRedeemable is the spendable currency
	PointTypeRedeemable PointType = "redeemable"
	// PointTypeSoulBound is the non-spendable reputation currency
	PointTypeSoulBound PointType = "soul_bound"
)

// Valid reports whether pt is a known point type
func (pt PointType) Valid() bool {
	return pt == PointTypeRedeemable || pt == PointTypeSoulBound
}

// User represents a Discord-linked shop user with two balances
type User struct {
	DiscordID         int64     `db:"discord_id"`
	Username          string    `db:"username"`
	RedeemableBalance int64     `db:"redeemable_balance"`
	SoulBoundBalance  int64     `db:"soul_bound_balance"`
	TotalEarned       int64     `db:"total_earned"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// BalanceFor returns the current balance for the given point type
func (u *User) BalanceFor(pt PointType) int64 {
	if pt == PointTypeSoulBound {
		return u.SoulBoundBalance
	}
	return u.RedeemableBalance
}

// Balances is the pair of balances returned to callers
type Balances struct {
	Redeemable  int64
	SoulBound   int64
	TotalEarned int64
}
