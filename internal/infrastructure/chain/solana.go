package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/hashora/settlement-service/internal/domain"
	"github.com/shopspring/decimal"
)

// SolanaAdapter resolves SPL token transfers from pre/post token-account
// balances of a finalized transaction.
type SolanaAdapter struct {
	rpcURL string
	mint   string
	client *http.Client
}

func NewSolanaAdapter(rpcURL, usdtMint string, timeout time.Duration) *SolanaAdapter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SolanaAdapter{
		rpcURL: strings.TrimRight(rpcURL, "/"),
		mint:   usdtMint,
		client: &http.Client{Timeout: timeout},
	}
}

func (a *SolanaAdapter) Chain() domain.Chain { return domain.ChainSolana }

func (a *SolanaAdapter) VerifyTransfer(ctx context.Context, q domain.TransferQuery) (domain.VerificationOutcome, error) {
	var resp getTransactionResponse
	err := a.call(ctx, "getTransaction", []any{
		q.TxRef,
		map[string]any{
			"encoding":                       "jsonParsed",
			"commitment":                     "finalized",
			"maxSupportedTransactionVersion": 0,
		},
	}, &resp)
	if err != nil {
		return domain.VerificationOutcome{}, err
	}
	if resp.Error != nil {
		return domain.VerificationOutcome{}, fmt.Errorf("solana rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	// A finalized-commitment lookup returns null both for unknown and for
	// not-yet-finalized signatures; either way the caller retries.
	if resp.Result == nil {
		return domain.Unverified(domain.ReasonTransactionNotFound, "transaction not found at finalized commitment"), nil
	}
	if len(resp.Result.Meta.Err) > 0 && string(resp.Result.Meta.Err) != "null" {
		return domain.Unverified(domain.ReasonExecutionFailed, "transaction failed on chain"), nil
	}

	sender := firstSigner(resp.Result.Transaction.Message.AccountKeys)
	if !domain.SenderMatches(q.SenderExpected, sender) {
		return domain.VerificationOutcome{
			SenderAddress: sender,
			FailureReason: domain.ReasonSenderMismatch,
			Detail: fmt.Sprintf("expected sender %s, transaction signed by %s",
				domain.TruncateAddress(q.SenderExpected), domain.TruncateAddress(sender)),
		}, nil
	}

	received := a.recipientDelta(resp.Result.Meta, q.Recipient)
	return settleAmount(q, sender, received), nil
}

// recipientDelta sums the positive post-pre balance changes of the expected
// recipient's token accounts for the monitored mint.
func (a *SolanaAdapter) recipientDelta(meta txMeta, recipient string) decimal.Decimal {
	pre := map[int]*big.Int{}
	for _, b := range meta.PreTokenBalances {
		if b.Mint != a.mint {
			continue
		}
		pre[b.AccountIndex] = rawAmount(b.UITokenAmount.Amount)
	}

	total := new(big.Int)
	var decimals int32
	for _, b := range meta.PostTokenBalances {
		if b.Mint != a.mint || !strings.EqualFold(b.Owner, recipient) {
			continue
		}
		decimals = b.UITokenAmount.Decimals
		post := rawAmount(b.UITokenAmount.Amount)
		before, ok := pre[b.AccountIndex]
		if !ok {
			before = new(big.Int)
		}
		delta := new(big.Int).Sub(post, before)
		if delta.Sign() > 0 {
			total.Add(total, delta)
		}
	}

	if total.Sign() == 0 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(total, -decimals)
}

func firstSigner(keys []accountKey) string {
	for _, k := range keys {
		if k.Signer {
			return k.Pubkey
		}
	}
	if len(keys) > 0 {
		return keys[0].Pubkey
	}
	return ""
}

func rawAmount(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}

func (a *SolanaAdapter) call(ctx context.Context, method string, params []any, out any) error {
	payload, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(body))
		if msg != "" {
			return fmt.Errorf("solana rpc http status %d: %s", resp.StatusCode, msg)
		}
		return fmt.Errorf("solana rpc http status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// RPC response types

type getTransactionResponse struct {
	Result *txResult `json:"result"`
	Error  *rpcError `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type txResult struct {
	Meta        txMeta `json:"meta"`
	Transaction struct {
		Message struct {
			AccountKeys []accountKey `json:"accountKeys"`
		} `json:"message"`
	} `json:"transaction"`
}

type txMeta struct {
	Err               json.RawMessage `json:"err"`
	PreTokenBalances  []tokenBalance  `json:"preTokenBalances"`
	PostTokenBalances []tokenBalance  `json:"postTokenBalances"`
}

type accountKey struct {
	Pubkey string `json:"pubkey"`
	Signer bool   `json:"signer"`
}

type tokenBalance struct {
	AccountIndex  int    `json:"accountIndex"`
	Mint          string `json:"mint"`
	Owner         string `json:"owner"`
	UITokenAmount struct {
		Amount   string `json:"amount"`
		Decimals int32  `json:"decimals"`
	} `json:"uiTokenAmount"`
}
