package domain

import "time"

type EntryKind string

const (
	EntryEarned   EntryKind = "earned"
	EntryRedeemed EntryKind = "redeemed"
	EntryBonus    EntryKind = "bonus"
	EntryAdjusted EntryKind = "adjusted"
)

// LedgerEntry is one immutable record of a point balance change. The full
// set of a user's entries is the source of truth for their balance; entries
// are never mutated or deleted after creation.
type LedgerEntry struct {
	ID          int64
	UserID      int64
	OrderID     *int64
	Kind        EntryKind
	Points      int // signed: positive for earned/bonus, negative for redeemed
	Description string
	CreatedAt   time.Time
}

func NewLedgerEntry(userID int64, orderID *int64, kind EntryKind, points int, description string) (*LedgerEntry, error) {
	switch kind {
	case EntryEarned, EntryBonus:
		if points <= 0 {
			return nil, &ValidationError{Field: "points", Reason: "earned and bonus deltas must be positive"}
		}
	case EntryRedeemed:
		if points >= 0 {
			return nil, &ValidationError{Field: "points", Reason: "redeemed deltas must be negative"}
		}
	case EntryAdjusted:
		if points == 0 {
			return nil, &ValidationError{Field: "points", Reason: "adjustment delta must not be zero"}
		}
	default:
		return nil, &ValidationError{Field: "kind", Reason: "unknown ledger entry kind"}
	}

	return &LedgerEntry{
		UserID:      userID,
		OrderID:     orderID,
		Kind:        kind,
		Points:      points,
		Description: description,
		CreatedAt:   time.Now(),
	}, nil
}

// PointsAccount is the cached projection of a user's ledger. Balance must
// always equal the sum of entry deltas, LifetimeEarned the sum of positive
// earned deltas.
type PointsAccount struct {
	UserID         int64
	Balance        int
	LifetimeEarned int
	UpdatedAt      time.Time
}

func NewPointsAccount(userID int64) *PointsAccount {
	return &PointsAccount{UserID: userID, UpdatedAt: time.Now()}
}

// Apply folds one entry into the cached projection. Callers must persist the
// entry and the account in the same atomic unit of work.
func (a *PointsAccount) Apply(entry *LedgerEntry) {
	a.Balance += entry.Points
	if entry.Kind == EntryEarned {
		a.LifetimeEarned += entry.Points
	}
	a.UpdatedAt = time.Now()
}
