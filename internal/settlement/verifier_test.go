package settlement

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const testChainID = 1337

var treasuryAddr = common.HexToAddress("0x000000000000000000000000000000000000dEaD")

// fakeChain is an in-memory ChainReader.
type fakeChain struct {
	txs      map[common.Hash]*types.Transaction
	receipts map[common.Hash]*types.Receipt
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		txs:      make(map[common.Hash]*types.Transaction),
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

func (f *fakeChain) TransactionByHash(_ context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	if tx, ok := f.txs[hash]; ok {
		return tx, false, nil
	}
	return nil, false, ethereum.NotFound
}

func (f *fakeChain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	if r, ok := f.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

// signedPayment builds a real signed transfer so sender recovery runs
// the production code path.
func signedPayment(t *testing.T, key *ecdsa.PrivateKey, to common.Address, valueWei *big.Int) *types.Transaction {
	t.Helper()
	tx := types.NewTransaction(0, to, valueWei, 21000, big.NewInt(1), nil)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(testChainID)), key)
	if err != nil {
		t.Fatalf("failed to sign tx: %v", err)
	}
	return signed
}

func setup(t *testing.T) (*Verifier, *fakeChain, *ecdsa.PrivateKey, string) {
	t.Helper()
	chain := newFakeChain()
	v := NewVerifierWithChain(chain, treasuryAddr.Hex(), testChainID)
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	sender := crypto.PubkeyToAddress(key.PublicKey).Hex()
	return v, chain, key, sender
}

func TestVerifyPaymentSuccess(t *testing.T) {
	v, chain, key, sender := setup(t)
	tx := signedPayment(t, key, treasuryAddr, big.NewInt(1e15))
	chain.txs[tx.Hash()] = tx
	chain.receipts[tx.Hash()] = &types.Receipt{Status: types.ReceiptStatusSuccessful}

	pending, err := v.VerifyPayment(context.Background(), sender, tx.Hash().Hex(), big.NewInt(1e15))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if pending {
		t.Error("expected non-pending result with receipt present")
	}
}

func TestVerifyPaymentOverpayAccepted(t *testing.T) {
	v, chain, key, sender := setup(t)
	tx := signedPayment(t, key, treasuryAddr, big.NewInt(2e15))
	chain.txs[tx.Hash()] = tx
	chain.receipts[tx.Hash()] = &types.Receipt{Status: types.ReceiptStatusSuccessful}

	if _, err := v.VerifyPayment(context.Background(), sender, tx.Hash().Hex(), big.NewInt(1e15)); err != nil {
		t.Fatalf("value above expected should pass, got %v", err)
	}
}

func TestVerifyPaymentPendingReceipt(t *testing.T) {
	v, chain, key, sender := setup(t)
	tx := signedPayment(t, key, treasuryAddr, big.NewInt(1e15))
	chain.txs[tx.Hash()] = tx
	// no receipt stored: node has not seen it mined yet

	pending, err := v.VerifyPayment(context.Background(), sender, tx.Hash().Hex(), big.NewInt(1e15))
	if err != nil {
		t.Fatalf("pending receipt should be provisionally accepted, got %v", err)
	}
	if !pending {
		t.Error("expected pending=true with missing receipt")
	}
}

func TestVerifyPaymentRevertedTx(t *testing.T) {
	v, chain, key, sender := setup(t)
	tx := signedPayment(t, key, treasuryAddr, big.NewInt(1e15))
	chain.txs[tx.Hash()] = tx
	chain.receipts[tx.Hash()] = &types.Receipt{Status: types.ReceiptStatusFailed}

	_, err := v.VerifyPayment(context.Background(), sender, tx.Hash().Hex(), big.NewInt(1e15))
	if !errors.Is(err, ErrTxVerificationFailed) {
		t.Errorf("expected verification failure for reverted tx, got %v", err)
	}
}

func TestVerifyPaymentWrongRecipient(t *testing.T) {
	v, chain, key, sender := setup(t)
	other := common.HexToAddress("0x1111111111111111111111111111111111111111")
	tx := signedPayment(t, key, other, big.NewInt(1e15))
	chain.txs[tx.Hash()] = tx
	chain.receipts[tx.Hash()] = &types.Receipt{Status: types.ReceiptStatusSuccessful}

	_, err := v.VerifyPayment(context.Background(), sender, tx.Hash().Hex(), big.NewInt(1e15))
	if !errors.Is(err, ErrTxVerificationFailed) {
		t.Errorf("expected verification failure for wrong recipient, got %v", err)
	}
}

func TestVerifyPaymentWrongSender(t *testing.T) {
	v, chain, key, _ := setup(t)
	tx := signedPayment(t, key, treasuryAddr, big.NewInt(1e15))
	chain.txs[tx.Hash()] = tx
	chain.receipts[tx.Hash()] = &types.Receipt{Status: types.ReceiptStatusSuccessful}

	claimed := "0x2222222222222222222222222222222222222222"
	_, err := v.VerifyPayment(context.Background(), claimed, tx.Hash().Hex(), big.NewInt(1e15))
	if !errors.Is(err, ErrTxVerificationFailed) {
		t.Errorf("expected verification failure for sender mismatch, got %v", err)
	}
}

func TestVerifyPaymentInsufficientValue(t *testing.T) {
	v, chain, key, sender := setup(t)
	tx := signedPayment(t, key, treasuryAddr, big.NewInt(1e14))
	chain.txs[tx.Hash()] = tx
	chain.receipts[tx.Hash()] = &types.Receipt{Status: types.ReceiptStatusSuccessful}

	_, err := v.VerifyPayment(context.Background(), sender, tx.Hash().Hex(), big.NewInt(1e15))
	if !errors.Is(err, ErrTxVerificationFailed) {
		t.Errorf("expected verification failure for low value, got %v", err)
	}
}

func TestVerifyPaymentUnknownHash(t *testing.T) {
	v, _, _, sender := setup(t)

	_, err := v.VerifyPayment(context.Background(), sender,
		"0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef", big.NewInt(1))
	if !errors.Is(err, ErrTxLookupFailed) {
		t.Errorf("expected lookup failure for unknown hash, got %v", err)
	}
}

func TestCheckReceiptStates(t *testing.T) {
	v, chain, key, _ := setup(t)
	tx := signedPayment(t, key, treasuryAddr, big.NewInt(1e15))

	confirmed, failed, err := v.CheckReceipt(context.Background(), tx.Hash().Hex())
	if err != nil || confirmed || failed {
		t.Errorf("missing receipt: want (false,false,nil), got (%v,%v,%v)", confirmed, failed, err)
	}

	chain.receipts[tx.Hash()] = &types.Receipt{Status: types.ReceiptStatusSuccessful}
	confirmed, failed, _ = v.CheckReceipt(context.Background(), tx.Hash().Hex())
	if !confirmed || failed {
		t.Errorf("successful receipt: want confirmed, got (%v,%v)", confirmed, failed)
	}

	chain.receipts[tx.Hash()] = &types.Receipt{Status: types.ReceiptStatusFailed}
	confirmed, failed, _ = v.CheckReceipt(context.Background(), tx.Hash().Hex())
	if confirmed || !failed {
		t.Errorf("failed receipt: want failed, got (%v,%v)", confirmed, failed)
	}
}
