package economics

import (
	"math"
	"testing"
)

func baseParams() Params {
	return Params{
		TargetRewardUSD: 1.0,
		MarginBps:       1000,
		MinPayoutEth:    0.00005,
		MaxPayoutEth:    0.01,
	}
}

func TestOverridesUsedVerbatim(t *testing.T) {
	p := baseParams()
	p.PayoutEthOverride = 0.0003
	p.ChargeEthOverride = 0.0004

	snap := Compute(p, 2500)
	if snap.PayoutEth != 0.0003 || snap.ChargeEth != 0.0004 {
		t.Errorf("overrides not used verbatim: payout=%v charge=%v", snap.PayoutEth, snap.ChargeEth)
	}
}

func TestTargetUsdPath(t *testing.T) {
	snap := Compute(baseParams(), 2500)

	// $1 at $2500/ETH = 0.0004 ETH, inside the clamp
	if snap.PayoutEth != 0.0004 {
		t.Errorf("payout = %v, want 0.0004", snap.PayoutEth)
	}
	// 10% margin on top
	want := Quantize(0.0004 * 1.1)
	if snap.ChargeEth != want {
		t.Errorf("charge = %v, want %v", snap.ChargeEth, want)
	}
}

func TestClampBounds(t *testing.T) {
	p := baseParams()

	// Absurdly cheap ETH -> payout would exceed the max clamp
	snap := Compute(p, 0.01)
	if snap.PayoutEth != p.MaxPayoutEth {
		t.Errorf("payout = %v, want clamped max %v", snap.PayoutEth, p.MaxPayoutEth)
	}

	// Absurdly expensive ETH -> payout would fall under the min clamp
	snap = Compute(p, 1e9)
	if snap.PayoutEth != p.MinPayoutEth {
		t.Errorf("payout = %v, want clamped min %v", snap.PayoutEth, p.MinPayoutEth)
	}
}

func TestLegacyFallbackWithoutPrice(t *testing.T) {
	snap := Compute(baseParams(), 0)
	if snap.PayoutEth != legacyPayoutEth {
		t.Errorf("payout = %v, want legacy default %v", snap.PayoutEth, legacyPayoutEth)
	}
	if snap.ChargeEth < snap.PayoutEth {
		t.Error("charge below payout on legacy path")
	}
}

func TestChargeNeverBelowPayout(t *testing.T) {
	prices := []float64{0, 0.01, 1, 100, 2500, 5000, 1e7}
	for _, price := range prices {
		snap := Compute(baseParams(), price)
		if snap.ChargeEth < snap.PayoutEth {
			t.Errorf("price %v: charge %v < payout %v", price, snap.ChargeEth, snap.PayoutEth)
		}
		if snap.PayoutEth < baseParams().MinPayoutEth || snap.PayoutEth > baseParams().MaxPayoutEth {
			t.Errorf("price %v: payout %v outside clamp", price, snap.PayoutEth)
		}
	}
}

func TestQuantizeEightDecimals(t *testing.T) {
	v := Quantize(0.123456789123)
	if v != 0.12345679 {
		t.Errorf("Quantize = %v, want 0.12345679", v)
	}
}

func TestEthToWeiExact(t *testing.T) {
	wei := EthToWei(0.0004)
	if wei.String() != "400000000000000" {
		t.Errorf("EthToWei(0.0004) = %s, want 400000000000000", wei.String())
	}

	// One full ETH
	if got := EthToWei(1).String(); got != "1000000000000000000" {
		t.Errorf("EthToWei(1) = %s", got)
	}

	// A value with float noise still lands on the 8-decimal grid
	noisy := 0.1 + 0.2 // 0.30000000000000004
	if got := EthToWei(noisy).String(); got != "300000000000000000" {
		t.Errorf("EthToWei(0.3 with noise) = %s", got)
	}

	if math.Mod(float64(EthToWei(0.00000001).Int64()), 1e10) != 0 {
		t.Error("smallest tick not a multiple of 1e10 wei")
	}
}
