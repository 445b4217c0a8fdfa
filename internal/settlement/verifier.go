package settlement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/gridstake/backend/internal/config"
)

// Failure classes surfaced to clients: a bad transaction is not the same
// as one the RPC node cannot find yet.
var (
	ErrNotConfigured        = errors.New("settlement not configured")
	ErrTxLookupFailed       = errors.New("tx_lookup_failed")
	ErrTxVerificationFailed = errors.New("tx_verification_failed")
)

// ChainReader is the slice of the chain RPC client the verifier needs.
// *ethclient.Client satisfies it.
type ChainReader interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Verifier checks submitted transaction hashes against chain state.
type Verifier struct {
	chain    ChainReader
	treasury common.Address
	chainID  *big.Int
}

// NewVerifier dials the chain RPC endpoint. Treasury address and RPC URL
// are both required; without them the whole settlement path is down and
// callers degrade reads to neutral results.
func NewVerifier(cfg *config.Config) (*Verifier, error) {
	if cfg.ChainRPCURL == "" || cfg.TreasuryAddress == "" {
		return nil, ErrNotConfigured
	}
	if !common.IsHexAddress(cfg.TreasuryAddress) {
		return nil, fmt.Errorf("invalid treasury address %q", cfg.TreasuryAddress)
	}
	client, err := ethclient.Dial(cfg.ChainRPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain RPC: %w", err)
	}
	log.Printf("[SETTLE] Chain verifier initialized (rpc=%s chain_id=%d treasury=%s)",
		cfg.ChainRPCURL, cfg.ChainID, cfg.TreasuryAddress)
	return NewVerifierWithChain(client, cfg.TreasuryAddress, cfg.ChainID), nil
}

// NewVerifierWithChain builds a verifier over an existing chain reader.
func NewVerifierWithChain(chain ChainReader, treasury string, chainID int64) *Verifier {
	return &Verifier{
		chain:    chain,
		treasury: common.HexToAddress(treasury),
		chainID:  big.NewInt(chainID),
	}
}

// Treasury returns the configured payment recipient.
func (v *Verifier) Treasury() common.Address { return v.treasury }

// ChainID returns the configured chain id.
func (v *Verifier) ChainID() int64 { return v.chainID.Int64() }

// VerifyPayment confirms that txHash paid the treasury at least
// expectedWei from the claiming address. All checks must hold:
// recipient, sender, value and receipt success. A receipt the node
// cannot find yet is provisionally accepted (pending=true) to tolerate
// propagation delay. On any failure nothing is mutated and the error
// wraps the matching failure class.
func (v *Verifier) VerifyPayment(ctx context.Context, from string, txHash string, expectedWei *big.Int) (pending bool, err error) {
	if v == nil {
		return false, ErrNotConfigured
	}
	if !common.IsHexAddress(from) {
		return false, fmt.Errorf("%w: invalid sender address", ErrTxVerificationFailed)
	}
	hash := common.HexToHash(txHash)

	tx, _, err := v.chain.TransactionByHash(ctx, hash)
	if err != nil {
		log.Printf("[SETTLE] Tx lookup failed for %s: %v", txHash, err)
		return false, fmt.Errorf("%w: %v", ErrTxLookupFailed, err)
	}

	if tx.To() == nil || *tx.To() != v.treasury {
		return false, fmt.Errorf("%w: recipient is not the treasury", ErrTxVerificationFailed)
	}

	sender, err := types.Sender(types.LatestSignerForChainID(v.chainID), tx)
	if err != nil {
		return false, fmt.Errorf("%w: could not recover sender: %v", ErrTxVerificationFailed, err)
	}
	if sender != common.HexToAddress(from) {
		return false, fmt.Errorf("%w: sender %s does not match claiming address", ErrTxVerificationFailed, strings.ToLower(sender.Hex()))
	}

	if tx.Value().Cmp(expectedWei) < 0 {
		return false, fmt.Errorf("%w: value %s below expected %s wei", ErrTxVerificationFailed, tx.Value(), expectedWei)
	}

	receipt, err := v.chain.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			// Receipt not propagated yet: provisional accept, re-checked
			// later by the receipt checker.
			log.Printf("[SETTLE] Receipt pending for %s, provisionally accepting", txHash)
			return true, nil
		}
		return false, fmt.Errorf("%w: receipt lookup: %v", ErrTxLookupFailed, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return false, fmt.Errorf("%w: transaction reverted", ErrTxVerificationFailed)
	}

	return false, nil
}

// CheckReceipt re-fetches just the receipt for a provisionally accepted
// transaction. Returns (confirmed, failed): still-missing receipts
// return (false, false).
func (v *Verifier) CheckReceipt(ctx context.Context, txHash string) (confirmed, failed bool, err error) {
	receipt, err := v.chain.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return false, false, nil
		}
		return false, false, err
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		return true, false, nil
	}
	return false, true, nil
}
