package ledger

import (
	"database/sql"
	"testing"

	"github.com/gridstake/backend/internal/models"
)

func TestGateRequired(t *testing.T) {
	cases := []struct {
		name             string
		count, threshold int
		want             bool
	}{
		{"no debt is open", 0, 1, false},
		{"one outstanding session at threshold 1 blocks", 1, 1, true},
		{"debt above threshold blocks", 3, 1, true},
		{"below a raised threshold stays open", 2, 3, false},
		{"at a raised threshold blocks", 3, 3, true},
		{"zero threshold falls back to 1", 1, 0, true},
		{"negative threshold falls back to 1", 0, -5, false},
	}
	for _, tc := range cases {
		if got := GateRequired(tc.count, tc.threshold); got != tc.want {
			t.Errorf("%s: GateRequired(%d, %d) = %v, want %v", tc.name, tc.count, tc.threshold, got, tc.want)
		}
	}
}

func TestNeedsVerification(t *testing.T) {
	cases := []struct {
		name string
		row  models.GameSession
		want bool
	}{
		{
			name: "fresh debt needs verification",
			row:  models.GameSession{RequiresSettlement: true},
			want: true,
		},
		{
			name: "already settled is trivial",
			row:  models.GameSession{RequiresSettlement: true, Settled: true},
			want: false,
		},
		{
			name: "no settlement requirement is trivial",
			row:  models.GameSession{},
			want: false,
		},
		{
			name: "debt with recorded tx hash is trivial",
			row: models.GameSession{
				RequiresSettlement: true,
				TxHash:             sql.NullString{String: "0xabc", Valid: true},
			},
			want: false,
		},
	}
	for _, tc := range cases {
		if got := NeedsVerification(&tc.row); got != tc.want {
			t.Errorf("%s: NeedsVerification = %v, want %v", tc.name, got, tc.want)
		}
	}
}
