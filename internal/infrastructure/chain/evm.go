package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/hashora/settlement-service/internal/domain"
	"github.com/shopspring/decimal"
)

var transferEventSignature = gethcrypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// usdtDecimals is the fixed-point scale of the monitored token on both the
// EVM and Tron networks.
const usdtDecimals = 6

// EVMClient is the subset of the Ethereum RPC surface the adapter needs.
// The sender comes from a direct transaction lookup, which is cheaper than
// and independent from the receipt fetch.
type EVMClient interface {
	TransactionSender(ctx context.Context, txHash common.Hash) (sender common.Address, pending bool, err error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

// GethClient implements EVMClient against a real node.
type GethClient struct {
	eth *ethclient.Client
	rpc *rpc.Client
}

func DialEVMClient(ctx context.Context, endpoint string) (*GethClient, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("evm rpc endpoint required")
	}
	rc, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return &GethClient{eth: ethclient.NewClient(rc), rpc: rc}, nil
}

func (c *GethClient) TransactionSender(ctx context.Context, txHash common.Hash) (common.Address, bool, error) {
	var raw *struct {
		From        common.Address `json:"from"`
		BlockNumber *string        `json:"blockNumber"`
	}
	if err := c.rpc.CallContext(ctx, &raw, "eth_getTransactionByHash", txHash); err != nil {
		return common.Address{}, false, err
	}
	if raw == nil {
		return common.Address{}, false, ethereum.NotFound
	}
	return raw.From, raw.BlockNumber == nil, nil
}

func (c *GethClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	return c.eth.TransactionReceipt(ctx, txHash)
}

// EVMAdapter verifies ERC-20 transfers by scanning receipt logs for the
// Transfer event addressed to the expected recipient.
type EVMAdapter struct {
	client EVMClient
	token  common.Address
}

func NewEVMAdapter(client EVMClient, usdtContract string) *EVMAdapter {
	return &EVMAdapter{
		client: client,
		token:  common.HexToAddress(usdtContract),
	}
}

func (a *EVMAdapter) Chain() domain.Chain { return domain.ChainEVM }

func (a *EVMAdapter) VerifyTransfer(ctx context.Context, q domain.TransferQuery) (domain.VerificationOutcome, error) {
	if !common.IsHexAddress(q.Recipient) {
		return domain.VerificationOutcome{}, fmt.Errorf("invalid recipient address %q", q.Recipient)
	}
	txHash := common.HexToHash(q.TxRef)

	sender, pending, err := a.client.TransactionSender(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return domain.Unverified(domain.ReasonTransactionNotFound, "transaction not found"), nil
		}
		return domain.VerificationOutcome{}, err
	}
	if pending {
		return domain.Unverified(domain.ReasonNotFinalized, "transaction not yet mined"), nil
	}

	senderHex := sender.Hex()
	if !domain.SenderMatches(q.SenderExpected, senderHex) {
		return domain.VerificationOutcome{
			SenderAddress: senderHex,
			FailureReason: domain.ReasonSenderMismatch,
			Detail: fmt.Sprintf("expected sender %s, transaction sent by %s",
				domain.TruncateAddress(q.SenderExpected), domain.TruncateAddress(senderHex)),
		}, nil
	}

	receipt, err := a.client.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return domain.Unverified(domain.ReasonNotFinalized, "receipt not yet available"), nil
		}
		return domain.VerificationOutcome{}, err
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return domain.VerificationOutcome{
			SenderAddress: senderHex,
			FailureReason: domain.ReasonExecutionFailed,
			Detail:        "transaction reverted",
		}, nil
	}

	recipient := common.HexToAddress(q.Recipient)
	total := new(big.Int)
	for _, log := range receipt.Logs {
		if log == nil || log.Address != a.token {
			continue
		}
		if len(log.Topics) < 3 || log.Topics[0] != transferEventSignature {
			continue
		}
		if common.BytesToAddress(log.Topics[2].Bytes()) != recipient {
			continue
		}
		total.Add(total, new(big.Int).SetBytes(log.Data))
	}

	received := decimal.NewFromBigInt(total, -usdtDecimals)
	return settleAmount(q, senderHex, received), nil
}
