// Package model defines the data models for the lottery marketplace.
package model

import "time"

// Ticket statuses.
const (
	TicketAvailable = "available"
	TicketSold      = "sold"
)

// Draw modes controlling which tickets enter the pool snapshot.
const (
	ModeSoldOnly   = "sold_only"
	ModeAllNumbers = "all_numbers"
)

// Ticket represents a purchasable 6-digit lottery number.
// UserID is nil until the ticket is sold.
type Ticket struct {
	ID        int64     `db:"id" json:"id"`
	Number    string    `db:"number" json:"number"`
	Price     int64     `db:"price" json:"price"`
	Status    string    `db:"status" json:"status"`
	UserID    *int64    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Sold reports whether the ticket has been purchased.
func (t *Ticket) Sold() bool {
	return t.Status == TicketSold
}

// Draw represents one confirmed execution of the prize selection process.
type Draw struct {
	ID        int64     `db:"id" json:"id"`
	Mode      string    `db:"mode" json:"mode"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Prize represents one rank's winning number (or suffix) for a draw.
type Prize struct {
	ID     int64  `db:"id" json:"id"`
	DrawID int64  `db:"draw_id" json:"draw_id"`
	Rank   int    `db:"prize_rank" json:"prize_rank"`
	Number string `db:"prize_number" json:"prize_number"`
	Amount int64  `db:"prize_amount" json:"prize_amount"`
}

// WinnerRecord marks a ticket as eligible for redemption at a given rank.
// A ticket may hold several records at once when it matches multiple ranks.
type WinnerRecord struct {
	ID       int64 `db:"id" json:"id"`
	TicketID int64 `db:"ticket_id" json:"ticket_id"`
	DrawID   int64 `db:"draw_id" json:"draw_id"`
	Rank     int   `db:"prize_rank" json:"prize_rank"`
	Amount   int64 `db:"prize_amount" json:"prize_amount"`
}

// Wallet holds a user's spendable balance.
type Wallet struct {
	UserID    int64     `db:"user_id" json:"user_id"`
	Balance   int64     `db:"balance" json:"balance"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Winning is the result of checking a user's tickets against the current
// winner records (ticket joined with its redemption-eligibility row).
type Winning struct {
	TicketID int64  `db:"ticket_id" json:"ticket_id"`
	Number   string `db:"number" json:"number"`
	Price    int64  `db:"price" json:"price"`
	Rank     int    `db:"prize_rank" json:"prize_rank"`
	Amount   int64  `db:"prize_amount" json:"prize_amount"`
}
