package handlers

import (
	"database/sql"
	"testing"

	"github.com/gridstake/backend/internal/models"
)

func TestSettleDisposition(t *testing.T) {
	cases := []struct {
		name    string
		row     models.GameSession
		isAdmin bool
		txHash  string
		want    settleMode
	}{
		{
			name: "win row settles without verification",
			row:  models.GameSession{Result: models.ResultWin},
			want: settleUnverified,
		},
		{
			name: "already settled row replays idempotently",
			row:  models.GameSession{RequiresSettlement: true, Settled: true},
			want: settleUnverified,
		},
		{
			name: "live debt without tx hash is rejected",
			row:  models.GameSession{Result: models.ResultLoss, RequiresSettlement: true},
			want: settleRejectMissingTx,
		},
		{
			name:   "live debt with tx hash must verify",
			row:    models.GameSession{Result: models.ResultLoss, RequiresSettlement: true},
			txHash: "0xabc",
			want:   settleVerify,
		},
		{
			name:    "admin override skips verification on live debt",
			row:     models.GameSession{Result: models.ResultLoss, RequiresSettlement: true},
			isAdmin: true,
			want:    settleUnverified,
		},
		{
			name:    "admin with tx hash still verifies",
			row:     models.GameSession{Result: models.ResultLoss, RequiresSettlement: true},
			isAdmin: true,
			txHash:  "0xabc",
			want:    settleVerify,
		},
		{
			name: "debt with recorded tx hash settles trivially",
			row: models.GameSession{
				RequiresSettlement: true,
				TxHash:             sql.NullString{String: "0xabc", Valid: true},
			},
			want: settleUnverified,
		},
	}
	for _, tc := range cases {
		if got := settleDisposition(&tc.row, tc.isAdmin, tc.txHash); got != tc.want {
			t.Errorf("%s: settleDisposition = %v, want %v", tc.name, got, tc.want)
		}
	}
}
