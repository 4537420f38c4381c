package chain_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hashora/settlement-service/internal/domain"
	"github.com/hashora/settlement-service/internal/infrastructure/chain"
)

var (
	transferTopic = gethcrypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

	tokenAddr     = common.HexToAddress("0x55d398326f99059fF775485246999027B3197955")
	senderAddr    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	recipientAddr = common.HexToAddress("0x2222222222222222222222222222222222222222")
	otherAddr     = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

type fakeEVMClient struct {
	sender     common.Address
	pending    bool
	senderErr  error
	receipt    *gethtypes.Receipt
	receiptErr error
}

func (f *fakeEVMClient) TransactionSender(context.Context, common.Hash) (common.Address, bool, error) {
	return f.sender, f.pending, f.senderErr
}

func (f *fakeEVMClient) TransactionReceipt(context.Context, common.Hash) (*gethtypes.Receipt, error) {
	return f.receipt, f.receiptErr
}

func transferLog(token common.Address, from, to common.Address, amount *big.Int) *gethtypes.Log {
	return &gethtypes.Log{
		Address: token,
		Topics: []common.Hash{
			transferTopic,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: common.LeftPadBytes(amount.Bytes(), 32),
	}
}

func evmQuery(expected string) domain.TransferQuery {
	return domain.TransferQuery{
		TxRef:          "0xdeadbeef",
		Recipient:      recipientAddr.Hex(),
		AmountExpected: decimal.RequireFromString(expected),
		SenderExpected: senderAddr.Hex(),
	}
}

func TestEVMVerifyHappyPath(t *testing.T) {
	client := &fakeEVMClient{
		sender: senderAddr,
		receipt: &gethtypes.Receipt{
			Status: gethtypes.ReceiptStatusSuccessful,
			Logs: []*gethtypes.Log{
				transferLog(tokenAddr, senderAddr, recipientAddr, big.NewInt(100_000_000)),
			},
		},
	}
	adapter := chain.NewEVMAdapter(client, tokenAddr.Hex())

	outcome, err := adapter.VerifyTransfer(context.Background(), evmQuery("100"))
	require.NoError(t, err)
	require.True(t, outcome.Verified)
	require.True(t, outcome.AmountReceived.Equal(decimal.RequireFromString("100")))
	require.Equal(t, senderAddr.Hex(), outcome.SenderAddress)
}

func TestEVMVerifySumsMultipleTransferLogs(t *testing.T) {
	client := &fakeEVMClient{
		sender: senderAddr,
		receipt: &gethtypes.Receipt{
			Status: gethtypes.ReceiptStatusSuccessful,
			Logs: []*gethtypes.Log{
				transferLog(tokenAddr, senderAddr, recipientAddr, big.NewInt(60_000_000)),
				transferLog(tokenAddr, senderAddr, recipientAddr, big.NewInt(40_000_000)),
				// Wrong recipient and wrong token must not count.
				transferLog(tokenAddr, senderAddr, otherAddr, big.NewInt(500_000_000)),
				transferLog(otherAddr, senderAddr, recipientAddr, big.NewInt(500_000_000)),
			},
		},
	}
	adapter := chain.NewEVMAdapter(client, tokenAddr.Hex())

	outcome, err := adapter.VerifyTransfer(context.Background(), evmQuery("100"))
	require.NoError(t, err)
	require.True(t, outcome.Verified)
	require.True(t, outcome.AmountReceived.Equal(decimal.RequireFromString("100")))
}

func TestEVMVerifyNotFound(t *testing.T) {
	client := &fakeEVMClient{senderErr: ethereum.NotFound}
	adapter := chain.NewEVMAdapter(client, tokenAddr.Hex())

	outcome, err := adapter.VerifyTransfer(context.Background(), evmQuery("100"))
	require.NoError(t, err)
	require.False(t, outcome.Verified)
	require.Equal(t, domain.ReasonTransactionNotFound, outcome.FailureReason)
	require.True(t, outcome.FailureReason.Retryable())
}

func TestEVMVerifyPending(t *testing.T) {
	client := &fakeEVMClient{sender: senderAddr, pending: true}
	adapter := chain.NewEVMAdapter(client, tokenAddr.Hex())

	outcome, err := adapter.VerifyTransfer(context.Background(), evmQuery("100"))
	require.NoError(t, err)
	require.False(t, outcome.Verified)
	require.Equal(t, domain.ReasonNotFinalized, outcome.FailureReason)
}

func TestEVMVerifySenderMismatchBeatsSufficientAmount(t *testing.T) {
	// The payment itself is perfect; only the payer identity is wrong.
	client := &fakeEVMClient{
		sender: otherAddr,
		receipt: &gethtypes.Receipt{
			Status: gethtypes.ReceiptStatusSuccessful,
			Logs: []*gethtypes.Log{
				transferLog(tokenAddr, otherAddr, recipientAddr, big.NewInt(100_000_000)),
			},
		},
	}
	adapter := chain.NewEVMAdapter(client, tokenAddr.Hex())

	outcome, err := adapter.VerifyTransfer(context.Background(), evmQuery("100"))
	require.NoError(t, err)
	require.False(t, outcome.Verified)
	require.Equal(t, domain.ReasonSenderMismatch, outcome.FailureReason)
	require.False(t, outcome.FailureReason.Retryable())
}

func TestEVMVerifyCaseInsensitiveSenderMatch(t *testing.T) {
	client := &fakeEVMClient{
		sender: senderAddr,
		receipt: &gethtypes.Receipt{
			Status: gethtypes.ReceiptStatusSuccessful,
			Logs: []*gethtypes.Log{
				transferLog(tokenAddr, senderAddr, recipientAddr, big.NewInt(100_000_000)),
			},
		},
	}
	adapter := chain.NewEVMAdapter(client, tokenAddr.Hex())

	q := evmQuery("100")
	q.SenderExpected = "0x1111111111111111111111111111111111111111"
	outcome, err := adapter.VerifyTransfer(context.Background(), q)
	require.NoError(t, err)
	require.True(t, outcome.Verified)
}

func TestEVMVerifyReverted(t *testing.T) {
	client := &fakeEVMClient{
		sender:  senderAddr,
		receipt: &gethtypes.Receipt{Status: gethtypes.ReceiptStatusFailed},
	}
	adapter := chain.NewEVMAdapter(client, tokenAddr.Hex())

	outcome, err := adapter.VerifyTransfer(context.Background(), evmQuery("100"))
	require.NoError(t, err)
	require.False(t, outcome.Verified)
	require.Equal(t, domain.ReasonExecutionFailed, outcome.FailureReason)
}

func TestEVMVerifyAmountTolerance(t *testing.T) {
	mkClient := func(units int64) *fakeEVMClient {
		return &fakeEVMClient{
			sender: senderAddr,
			receipt: &gethtypes.Receipt{
				Status: gethtypes.ReceiptStatusSuccessful,
				Logs: []*gethtypes.Log{
					transferLog(tokenAddr, senderAddr, recipientAddr, big.NewInt(units)),
				},
			},
		}
	}

	// 99.000000 of 100 expected sits exactly on the tolerance boundary.
	adapter := chain.NewEVMAdapter(mkClient(99_000_000), tokenAddr.Hex())
	outcome, err := adapter.VerifyTransfer(context.Background(), evmQuery("100"))
	require.NoError(t, err)
	require.True(t, outcome.Verified)

	// One token unit below the boundary is a shortfall.
	adapter = chain.NewEVMAdapter(mkClient(98_999_999), tokenAddr.Hex())
	outcome, err = adapter.VerifyTransfer(context.Background(), evmQuery("100"))
	require.NoError(t, err)
	require.False(t, outcome.Verified)
	require.Equal(t, domain.ReasonAmountInsufficient, outcome.FailureReason)
	require.Contains(t, outcome.Detail, "short by")
}

func TestEVMVerifyNoMatchingTransfer(t *testing.T) {
	client := &fakeEVMClient{
		sender: senderAddr,
		receipt: &gethtypes.Receipt{
			Status: gethtypes.ReceiptStatusSuccessful,
			Logs: []*gethtypes.Log{
				transferLog(tokenAddr, senderAddr, otherAddr, big.NewInt(100_000_000)),
			},
		},
	}
	adapter := chain.NewEVMAdapter(client, tokenAddr.Hex())

	outcome, err := adapter.VerifyTransfer(context.Background(), evmQuery("100"))
	require.NoError(t, err)
	require.False(t, outcome.Verified)
	require.Equal(t, domain.ReasonNoMatchingTransfer, outcome.FailureReason)
}

func TestEVMVerifyEmptySenderExpectedSkipsBinding(t *testing.T) {
	client := &fakeEVMClient{
		sender: otherAddr,
		receipt: &gethtypes.Receipt{
			Status: gethtypes.ReceiptStatusSuccessful,
			Logs: []*gethtypes.Log{
				transferLog(tokenAddr, otherAddr, recipientAddr, big.NewInt(100_000_000)),
			},
		},
	}
	adapter := chain.NewEVMAdapter(client, tokenAddr.Hex())

	q := evmQuery("100")
	q.SenderExpected = ""
	outcome, err := adapter.VerifyTransfer(context.Background(), q)
	require.NoError(t, err)
	require.True(t, outcome.Verified)
	require.Equal(t, otherAddr.Hex(), outcome.SenderAddress)
}
