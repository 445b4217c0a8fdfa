package economics

import (
	"context"
	"math"
	"math/big"

	"github.com/gridstake/backend/internal/config"
)

// legacyPayoutEth is the fixed fallback used when neither overrides nor
// a usable price are available.
const legacyPayoutEth = 0.0002

// Snapshot is the monetary quote computed fresh per request. It is a
// pure projection: nothing persists it.
type Snapshot struct {
	PayoutEth       float64 `json:"payoutEth"`
	ChargeEth       float64 `json:"chargeEth"`
	PriceUsd        float64 `json:"priceUsd"`
	TargetRewardUsd float64 `json:"targetRewardUsd"`
	MarginBps       int     `json:"marginBps"`
}

// Params are the static economics knobs, split from config so Compute
// stays a pure function.
type Params struct {
	TargetRewardUSD   float64
	MarginBps         int
	MinPayoutEth      float64
	MaxPayoutEth      float64
	PayoutEthOverride float64
	ChargeEthOverride float64
}

// ParamsFromConfig extracts the economics knobs from the app config.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		TargetRewardUSD:   cfg.TargetRewardUSD,
		MarginBps:         cfg.MarginBps,
		MinPayoutEth:      cfg.MinPayoutEth,
		MaxPayoutEth:      cfg.MaxPayoutEth,
		PayoutEthOverride: cfg.PayoutEthOverride,
		ChargeEthOverride: cfg.ChargeEthOverride,
	}
}

// Compute derives (payout, charge) with a layered priority: explicit
// overrides verbatim; else target USD over the live price, clamped; else
// the legacy default, clamped the same way. The charge always carries
// the margin on top of the payout, so the house never pays out more per
// round than it charges. priceUsd <= 0 means "no live price".
func Compute(p Params, priceUsd float64) Snapshot {
	snap := Snapshot{
		PriceUsd:        Quantize(priceUsd),
		TargetRewardUsd: p.TargetRewardUSD,
		MarginBps:       p.MarginBps,
	}

	if p.PayoutEthOverride > 0 && p.ChargeEthOverride > 0 {
		snap.PayoutEth = Quantize(p.PayoutEthOverride)
		snap.ChargeEth = Quantize(p.ChargeEthOverride)
		return snap
	}

	payout := legacyPayoutEth
	if p.TargetRewardUSD > 0 && priceUsd > 0 {
		payout = p.TargetRewardUSD / priceUsd
	}
	payout = clamp(payout, p.MinPayoutEth, p.MaxPayoutEth)

	charge := payout * (1 + float64(p.MarginBps)/10000)

	snap.PayoutEth = Quantize(payout)
	snap.ChargeEth = Quantize(charge)
	return snap
}

// Calculator binds the static params to a live price feed.
type Calculator struct {
	params Params
	feed   *PriceFeed
}

// NewCalculator creates a calculator. feed may be nil (no price feed
// configured); quotes then fall back to overrides or the legacy default.
func NewCalculator(cfg *config.Config, feed *PriceFeed) *Calculator {
	return &Calculator{params: ParamsFromConfig(cfg), feed: feed}
}

// Quote computes a fresh snapshot from the current price. A feed failure
// degrades to a priceless computation rather than erroring, so the game
// stays playable in non-monetary environments.
func (c *Calculator) Quote(ctx context.Context) Snapshot {
	var price float64
	if c.feed != nil {
		if p, err := c.feed.EthUsd(ctx); err == nil {
			price = p
		}
	}
	return Compute(c.params, price)
}

func clamp(v, lo, hi float64) float64 {
	if lo > 0 && v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}

// Quantize rounds to 8 decimal places. All monetary outputs pass through
// this before any downstream wei conversion, to avoid float drift.
func Quantize(v float64) float64 {
	return math.Round(v*1e8) / 1e8
}

var weiPerTick = big.NewInt(1e10) // wei per 1e-8 ETH

// EthToWei converts a quantized ETH amount to wei exactly: the amount is
// taken at 8-decimal resolution and scaled by 1e10, so no float error
// reaches the chain unit.
func EthToWei(eth float64) *big.Int {
	ticks := int64(math.Round(eth * 1e8))
	return new(big.Int).Mul(big.NewInt(ticks), weiPerTick)
}
