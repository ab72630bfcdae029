package models

import "time"

// RaffleStatus is the one-way raffle lifecycle: draft -> active -> ended or
// cancelled. A raffle never returns to draft once opened.
type RaffleStatus string

const (
	RaffleStatusDraft     RaffleStatus = "draft"
	RaffleStatusActive    RaffleStatus = "active"
	RaffleStatusEnded     RaffleStatus = "ended"
	RaffleStatusCancelled RaffleStatus = "cancelled"
)

// Raffle is one ticket pool. TotalTicketsSold never exceeds MaxEntries and
// ticket numbers are never recycled, even after cancellation.
type Raffle struct {
	ID                int64        `db:"id"`
	Title             string       `db:"title"`
	TicketPrice       int64        `db:"ticket_price"`
	MaxEntries        int64        `db:"max_entries"`
	MaxEntriesPerUser int64        `db:"max_entries_per_user"` // 0 = unlimited
	Status            RaffleStatus `db:"status"`
	StartDate         time.Time    `db:"start_date"`
	EndDate           time.Time    `db:"end_date"`
	TotalTicketsSold  int64        `db:"total_tickets_sold"`
	TotalParticipants int64        `db:"total_participants"`
	WinnerDiscordID   *int64       `db:"winner_discord_id"`
	WinningTicket     *int64       `db:"winning_ticket"`
	DrawnAt           *time.Time   `db:"drawn_at"`
	CreatedAt         time.Time    `db:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at"`
}

// OpenAt reports whether the raffle accepts entries at t
func (r *Raffle) OpenAt(t time.Time) bool {
	return r.Status == RaffleStatusActive && !t.Before(r.StartDate) && t.Before(r.EndDate)
}

// RaffleEntry holds one user's tickets for one raffle. Ticket numbers are
// contiguous per purchase batch and globally unique within the raffle.
type RaffleEntry struct {
	ID            int64     `db:"id"`
	RaffleID      int64     `db:"raffle_id"`
	DiscordID     int64     `db:"discord_id"`
	TicketNumbers []int64   `db:"ticket_numbers"`
	PurchasePrice int64     `db:"purchase_price"`
	TransactionID *int64    `db:"transaction_id"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// RaffleEntryResult is returned after a ticket purchase
type RaffleEntryResult struct {
	EntryID          int64
	TicketNumbers    []int64
	TotalCost        int64
	UserTotalEntries int64
	NewBalance       int64
}
