package chain_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hashora/settlement-service/internal/domain"
	"github.com/hashora/settlement-service/internal/infrastructure/chain"
)

const (
	testMint      = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
	solSender     = "SenderPubkey11111111111111111111111111111111"
	solRecipient  = "RecipientOwner111111111111111111111111111111"
	otherMint     = "OtherMint11111111111111111111111111111111111"
	solanaTestTTL = 5 * time.Second
)

func solanaServer(t *testing.T, result any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			Params []any  `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "getTransaction", req.Method)

		opts, ok := req.Params[1].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "finalized", opts["commitment"])
		require.Equal(t, "jsonParsed", opts["encoding"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": result})
	}))
}

func tokenBalanceEntry(index int, mint, owner, amount string) map[string]any {
	return map[string]any{
		"accountIndex": index,
		"mint":         mint,
		"owner":        owner,
		"uiTokenAmount": map[string]any{
			"amount":   amount,
			"decimals": 6,
		},
	}
}

func solanaTxResult(err any, pre, post []map[string]any) map[string]any {
	return map[string]any{
		"meta": map[string]any{
			"err":               err,
			"preTokenBalances":  pre,
			"postTokenBalances": post,
		},
		"transaction": map[string]any{
			"message": map[string]any{
				"accountKeys": []map[string]any{
					{"pubkey": solSender, "signer": true},
					{"pubkey": solRecipient, "signer": false},
				},
			},
		},
	}
}

func solanaQuery(expected string) domain.TransferQuery {
	return domain.TransferQuery{
		TxRef:          "5sig",
		Recipient:      solRecipient,
		AmountExpected: decimal.RequireFromString(expected),
		SenderExpected: solSender,
	}
}

func TestSolanaVerifyHappyPath(t *testing.T) {
	result := solanaTxResult(nil,
		[]map[string]any{tokenBalanceEntry(2, testMint, solRecipient, "500000000")},
		[]map[string]any{tokenBalanceEntry(2, testMint, solRecipient, "600000000")},
	)
	srv := solanaServer(t, result)
	defer srv.Close()

	adapter := chain.NewSolanaAdapter(srv.URL, testMint, solanaTestTTL)
	outcome, err := adapter.VerifyTransfer(context.Background(), solanaQuery("100"))
	require.NoError(t, err)
	require.True(t, outcome.Verified)
	require.True(t, outcome.AmountReceived.Equal(decimal.RequireFromString("100")))
	require.Equal(t, solSender, outcome.SenderAddress)
}

func TestSolanaVerifyNewTokenAccount(t *testing.T) {
	// No pre-balance entry at all: the recipient's token account was created
	// inside this transaction, so the whole post balance is the delta.
	result := solanaTxResult(nil,
		nil,
		[]map[string]any{tokenBalanceEntry(2, testMint, solRecipient, "100000000")},
	)
	srv := solanaServer(t, result)
	defer srv.Close()

	adapter := chain.NewSolanaAdapter(srv.URL, testMint, solanaTestTTL)
	outcome, err := adapter.VerifyTransfer(context.Background(), solanaQuery("100"))
	require.NoError(t, err)
	require.True(t, outcome.Verified)
	require.True(t, outcome.AmountReceived.Equal(decimal.RequireFromString("100")))
}

func TestSolanaVerifyIgnoresOtherMintsAndOwners(t *testing.T) {
	result := solanaTxResult(nil,
		[]map[string]any{
			tokenBalanceEntry(2, testMint, solRecipient, "0"),
			tokenBalanceEntry(3, otherMint, solRecipient, "0"),
			tokenBalanceEntry(4, testMint, "SomeoneElse", "0"),
		},
		[]map[string]any{
			tokenBalanceEntry(2, testMint, solRecipient, "100000000"),
			tokenBalanceEntry(3, otherMint, solRecipient, "900000000"),
			tokenBalanceEntry(4, testMint, "SomeoneElse", "900000000"),
		},
	)
	srv := solanaServer(t, result)
	defer srv.Close()

	adapter := chain.NewSolanaAdapter(srv.URL, testMint, solanaTestTTL)
	outcome, err := adapter.VerifyTransfer(context.Background(), solanaQuery("100"))
	require.NoError(t, err)
	require.True(t, outcome.Verified)
	require.True(t, outcome.AmountReceived.Equal(decimal.RequireFromString("100")))
}

func TestSolanaVerifyNotFound(t *testing.T) {
	srv := solanaServer(t, nil)
	defer srv.Close()

	adapter := chain.NewSolanaAdapter(srv.URL, testMint, solanaTestTTL)
	outcome, err := adapter.VerifyTransfer(context.Background(), solanaQuery("100"))
	require.NoError(t, err)
	require.False(t, outcome.Verified)
	require.Equal(t, domain.ReasonTransactionNotFound, outcome.FailureReason)
}

func TestSolanaVerifyFailedTransaction(t *testing.T) {
	result := solanaTxResult(map[string]any{"InstructionError": []any{0, "Custom"}}, nil, nil)
	srv := solanaServer(t, result)
	defer srv.Close()

	adapter := chain.NewSolanaAdapter(srv.URL, testMint, solanaTestTTL)
	outcome, err := adapter.VerifyTransfer(context.Background(), solanaQuery("100"))
	require.NoError(t, err)
	require.False(t, outcome.Verified)
	require.Equal(t, domain.ReasonExecutionFailed, outcome.FailureReason)
}

func TestSolanaVerifySenderMismatch(t *testing.T) {
	result := solanaTxResult(nil,
		nil,
		[]map[string]any{tokenBalanceEntry(2, testMint, solRecipient, "100000000")},
	)
	srv := solanaServer(t, result)
	defer srv.Close()

	adapter := chain.NewSolanaAdapter(srv.URL, testMint, solanaTestTTL)
	q := solanaQuery("100")
	q.SenderExpected = "DifferentSigner11111111111111111111111111111"
	outcome, err := adapter.VerifyTransfer(context.Background(), q)
	require.NoError(t, err)
	require.False(t, outcome.Verified)
	require.Equal(t, domain.ReasonSenderMismatch, outcome.FailureReason)
	require.Equal(t, solSender, outcome.SenderAddress)
}

func TestSolanaVerifyInsufficientAmount(t *testing.T) {
	result := solanaTxResult(nil,
		[]map[string]any{tokenBalanceEntry(2, testMint, solRecipient, "0")},
		[]map[string]any{tokenBalanceEntry(2, testMint, solRecipient, "50000000")},
	)
	srv := solanaServer(t, result)
	defer srv.Close()

	adapter := chain.NewSolanaAdapter(srv.URL, testMint, solanaTestTTL)
	outcome, err := adapter.VerifyTransfer(context.Background(), solanaQuery("100"))
	require.NoError(t, err)
	require.False(t, outcome.Verified)
	require.Equal(t, domain.ReasonAmountInsufficient, outcome.FailureReason)
	require.True(t, outcome.AmountReceived.Equal(decimal.RequireFromString("50")))
}

func TestSolanaVerifyNoTransferToRecipient(t *testing.T) {
	result := solanaTxResult(nil,
		[]map[string]any{tokenBalanceEntry(4, testMint, "SomeoneElse", "0")},
		[]map[string]any{tokenBalanceEntry(4, testMint, "SomeoneElse", "100000000")},
	)
	srv := solanaServer(t, result)
	defer srv.Close()

	adapter := chain.NewSolanaAdapter(srv.URL, testMint, solanaTestTTL)
	outcome, err := adapter.VerifyTransfer(context.Background(), solanaQuery("100"))
	require.NoError(t, err)
	require.False(t, outcome.Verified)
	require.Equal(t, domain.ReasonNoMatchingTransfer, outcome.FailureReason)
}

func TestSolanaVerifyProviderFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	adapter := chain.NewSolanaAdapter(srv.URL, testMint, solanaTestTTL)
	_, err := adapter.VerifyTransfer(context.Background(), solanaQuery("100"))
	require.Error(t, err)
}
