package chain

import "github.com/hashora/settlement-service/internal/domain"

var (
	_ domain.ChainAdapter = (*SolanaAdapter)(nil)
	_ domain.ChainAdapter = (*EVMAdapter)(nil)
	_ domain.ChainAdapter = (*TronAdapter)(nil)
)

// Adapters is the closed set of supported chains. Adding a chain means
// adding a field and a switch arm, so an unhandled chain is a compile-time
// gap rather than a silent fallthrough.
type Adapters struct {
	Solana domain.ChainAdapter
	EVM    domain.ChainAdapter
	Tron   domain.ChainAdapter
}

func (a Adapters) ForChain(c domain.Chain) (domain.ChainAdapter, error) {
	switch c {
	case domain.ChainSolana:
		return a.Solana, nil
	case domain.ChainEVM:
		return a.EVM, nil
	case domain.ChainTron:
		return a.Tron, nil
	default:
		return nil, domain.ErrUnsupportedChain
	}
}
