package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLedgerEntrySignRules(t *testing.T) {
	orderID := int64(5)

	tests := []struct {
		name    string
		kind    EntryKind
		points  int
		wantErr bool
	}{
		{name: "earned positive", kind: EntryEarned, points: 100},
		{name: "earned zero", kind: EntryEarned, points: 0, wantErr: true},
		{name: "earned negative", kind: EntryEarned, points: -10, wantErr: true},
		{name: "bonus positive", kind: EntryBonus, points: 50},
		{name: "bonus negative", kind: EntryBonus, points: -50, wantErr: true},
		{name: "redeemed negative", kind: EntryRedeemed, points: -80},
		{name: "redeemed positive", kind: EntryRedeemed, points: 80, wantErr: true},
		{name: "adjusted positive", kind: EntryAdjusted, points: 10},
		{name: "adjusted negative", kind: EntryAdjusted, points: -10},
		{name: "adjusted zero", kind: EntryAdjusted, points: 0, wantErr: true},
		{name: "unknown kind", kind: EntryKind("expired"), points: 10, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := NewLedgerEntry(1, &orderID, tt.kind, tt.points, "test")
			if tt.wantErr {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.points, entry.Points)
		})
	}
}

func TestPointsAccountApply(t *testing.T) {
	account := NewPointsAccount(1)

	apply := func(kind EntryKind, points int) {
		entry, err := NewLedgerEntry(1, nil, kind, points, "test")
		require.NoError(t, err)
		account.Apply(entry)
	}

	apply(EntryEarned, 200)
	apply(EntryBonus, 50)
	apply(EntryRedeemed, -100)
	apply(EntryAdjusted, -30)

	// Balance is the sum of all deltas; lifetime counts only earned entries.
	assert.Equal(t, 120, account.Balance)
	assert.Equal(t, 200, account.LifetimeEarned)
}

func TestPointsAccountCanGoNegativeOnAdjustment(t *testing.T) {
	account := NewPointsAccount(1)
	entry, err := NewLedgerEntry(1, nil, EntryAdjusted, -40, "correction")
	require.NoError(t, err)
	account.Apply(entry)
	assert.Equal(t, -40, account.Balance)
}
