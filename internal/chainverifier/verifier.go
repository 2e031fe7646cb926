package chainverifier

import (
	"context"
	"math/big"
)

type Status string

const (
	// StatusVerified means the transaction is mined and its observed fields
	// are reported; it says nothing about whether they match expectations.
	StatusVerified Status = "verified"
	// StatusNotFound means the chain has not indexed the transaction yet.
	// Not a failure: the attempt stays pending until its deadline.
	StatusNotFound Status = "not_found"
	// StatusReverted means the chain reports the transaction as failed.
	StatusReverted Status = "reverted"
)

// VerifyRequest identifies the transfer to look up. The verifier is a pure
// read against the chain and is safe to call repeatedly.
type VerifyRequest struct {
	ChainID      int64
	TokenAddress string
	ToAddress    string
	TxHash       string
}

// Transfer is the token movement actually observed on-chain.
type Transfer struct {
	From      string
	To        string
	Token     string
	AmountRaw *big.Int
}

// Outcome is the verifier's report. Transfer is nil when the transaction
// succeeded but carried no transfer of the requested token to the requested
// recipient; comparing observed fields against expectations is the caller's
// job, not the verifier's.
type Outcome struct {
	Status        Status
	Transfer      *Transfer
	Confirmations uint64
}

// Verifier is the oracle port for on-chain confirmation. Implementations
// must treat their own transport failures as errors, never as outcomes: an
// error from VerifyTransfer leaves the attempt pending.
type Verifier interface {
	VerifyTransfer(ctx context.Context, req VerifyRequest) (*Outcome, error)
}
