package domain

// UserDirectory exposes the mutable user profile owned by the accounts
// subsystem. Order creation reads it once to take the SenderExpected
// snapshot. Verification consults it only as the legacy fallback for orders
// created before snapshots existed; that path is deliberately weaker and is
// always logged.
type UserDirectory interface {
	RegisteredWalletAddress(userID string, chain Chain) (string, error)
}
