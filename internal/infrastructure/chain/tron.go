package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/hashora/settlement-service/internal/domain"
	"github.com/shopspring/decimal"
)

// TronAdapter verifies TRC-20 transfers through a TronGrid-style HTTP API:
// one call for the transaction execution result and sender, one for the
// decoded contract event log.
type TronAdapter struct {
	baseURL  string
	contract string
	apiKey   string
	client   *http.Client
}

func NewTronAdapter(baseURL, usdtContract, apiKey string, timeout time.Duration) *TronAdapter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TronAdapter{
		baseURL:  strings.TrimRight(baseURL, "/"),
		contract: usdtContract,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

func (a *TronAdapter) Chain() domain.Chain { return domain.ChainTron }

func (a *TronAdapter) VerifyTransfer(ctx context.Context, q domain.TransferQuery) (domain.VerificationOutcome, error) {
	tx, err := a.getTransaction(ctx, q.TxRef)
	if err != nil {
		return domain.VerificationOutcome{}, err
	}
	// An unknown txid yields an empty object, not an error envelope.
	if len(tx.Ret) == 0 {
		return domain.Unverified(domain.ReasonTransactionNotFound, "transaction not found"), nil
	}
	if tx.Ret[0].ContractRet != "SUCCESS" {
		return domain.Unverified(domain.ReasonExecutionFailed,
			fmt.Sprintf("transaction result %s", tx.Ret[0].ContractRet)), nil
	}

	sender := ""
	if len(tx.RawData.Contract) > 0 {
		sender = canonicalTronAddress(tx.RawData.Contract[0].Parameter.Value.OwnerAddress)
	}
	if !domain.SenderMatches(q.SenderExpected, sender) {
		return domain.VerificationOutcome{
			SenderAddress: sender,
			FailureReason: domain.ReasonSenderMismatch,
			Detail: fmt.Sprintf("expected sender %s, transaction signed by %s",
				domain.TruncateAddress(q.SenderExpected), domain.TruncateAddress(sender)),
		}, nil
	}

	events, err := a.getEvents(ctx, q.TxRef)
	if err != nil {
		return domain.VerificationOutcome{}, err
	}

	total := new(big.Int)
	for _, ev := range events {
		if ev.EventName != "Transfer" {
			continue
		}
		if !strings.EqualFold(ev.ContractAddress, a.contract) {
			continue
		}
		to := canonicalTronAddress(eventField(ev.Result, "to", "1"))
		if !strings.EqualFold(to, q.Recipient) {
			continue
		}
		if v, ok := new(big.Int).SetString(eventField(ev.Result, "value", "2"), 10); ok {
			total.Add(total, v)
		}
	}

	received := decimal.NewFromBigInt(total, -usdtDecimals)
	return settleAmount(q, sender, received), nil
}

func (a *TronAdapter) getTransaction(ctx context.Context, txID string) (*tronTransaction, error) {
	payload, err := json.Marshal(map[string]string{"value": txID})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/wallet/gettransactionbyid", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var tx tronTransaction
	if err := a.do(req, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (a *TronAdapter) getEvents(ctx context.Context, txID string) ([]tronEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1/transactions/"+txID+"/events", nil)
	if err != nil {
		return nil, err
	}

	var resp tronEventResponse
	if err := a.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (a *TronAdapter) do(req *http.Request, out any) error {
	if a.apiKey != "" {
		req.Header.Set("TRON-PRO-API-KEY", a.apiKey)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(body))
		if msg != "" {
			return fmt.Errorf("tron api http status %d: %s", resp.StatusCode, msg)
		}
		return fmt.Errorf("tron api http status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// canonicalTronAddress renders any of the provider's address spellings
// (base58 T-address, 41-prefixed hex, 0x hex) in base58check form so
// comparisons against stored addresses are uniform.
func canonicalTronAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" || strings.HasPrefix(addr, "T") {
		return addr
	}
	h := strings.TrimPrefix(strings.ToLower(addr), "0x")
	if len(h) == 40 {
		h = "41" + h
	}
	raw, err := hex.DecodeString(h)
	if err != nil || len(raw) != 21 {
		return addr
	}
	return base58.CheckEncode(raw[1:], raw[0])
}

func eventField(result map[string]string, name, index string) string {
	if v, ok := result[name]; ok {
		return v
	}
	return result[index]
}

// Provider response types

type tronTransaction struct {
	Ret []struct {
		ContractRet string `json:"contractRet"`
	} `json:"ret"`
	RawData struct {
		Contract []struct {
			Parameter struct {
				Value struct {
					OwnerAddress string `json:"owner_address"`
				} `json:"value"`
			} `json:"parameter"`
		} `json:"contract"`
	} `json:"raw_data"`
}

type tronEventResponse struct {
	Data []tronEvent `json:"data"`
}

type tronEvent struct {
	EventName       string            `json:"event_name"`
	ContractAddress string            `json:"contract_address"`
	Result          map[string]string `json:"result"`
}
