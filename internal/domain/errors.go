package domain

import "errors"

var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrInvalidStateTransition = errors.New("operation not allowed from current order state")
	ErrMissingTransaction     = errors.New("no transaction reference submitted")
	ErrUnsupportedChain       = errors.New("unsupported chain")
	ErrWalletNotFound         = errors.New("deposit wallet not found")
	ErrPackageNotFound        = errors.New("mining package not found")
	ErrSenderUnresolved       = errors.New("no registered sender address for user")
)
