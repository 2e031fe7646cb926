package chainverifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

var transferEventTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// EthReceiptReader is the slice of the RPC client the verifier needs.
// *ethclient.Client satisfies it; tests substitute a fake.
type EthReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// EVMVerifier reads ERC-20 transfer receipts from an EVM chain over RPC.
type EVMVerifier struct {
	client EthReceiptReader
	logger *slog.Logger
}

// NewEVMVerifier dials the RPC endpoint and checks it serves the expected
// chain before returning a verifier bound to it.
func NewEVMVerifier(ctx context.Context, rpcURL string, chainID int64, logger *slog.Logger) (*EVMVerifier, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	remoteChainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("query chain id: %w", err)
	}
	if remoteChainID.Int64() != chainID {
		return nil, fmt.Errorf("rpc endpoint serves chain %s, expected %d", remoteChainID, chainID)
	}
	return &EVMVerifier{client: client, logger: logger}, nil
}

// NewEVMVerifierWithClient wires an existing client, used by tests.
func NewEVMVerifierWithClient(client EthReceiptReader, logger *slog.Logger) *EVMVerifier {
	return &EVMVerifier{client: client, logger: logger}
}

// VerifyTransfer looks up the receipt for the hash and reports what the
// chain observed. RPC failures propagate as errors so the caller keeps the
// attempt pending instead of misreading an outage as a rejection.
func (v *EVMVerifier) VerifyTransfer(ctx context.Context, req VerifyRequest) (*Outcome, error) {
	receipt, err := v.client.TransactionReceipt(ctx, common.HexToHash(req.TxHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			v.logger.Debug("transaction not indexed yet", "tx_hash", req.TxHash)
			return &Outcome{Status: StatusNotFound}, nil
		}
		return nil, fmt.Errorf("fetch receipt for %s: %w", req.TxHash, err)
	}

	if receipt.Status == types.ReceiptStatusFailed {
		v.logger.Info("transaction reverted on-chain", "tx_hash", req.TxHash, "block", receipt.BlockNumber)
		return &Outcome{Status: StatusReverted}, nil
	}

	head, err := v.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch chain head: %w", err)
	}

	var confirmations uint64
	if head.Number.Cmp(receipt.BlockNumber) >= 0 {
		confirmations = new(big.Int).Sub(head.Number, receipt.BlockNumber).Uint64() + 1
	}

	outcome := &Outcome{
		Status:        StatusVerified,
		Transfer:      pickTransfer(receipt.Logs, req.TokenAddress, req.ToAddress),
		Confirmations: confirmations,
	}

	v.logger.Info("transaction verified on-chain",
		"tx_hash", req.TxHash,
		"block", receipt.BlockNumber,
		"confirmations", confirmations,
		"transfer_found", outcome.Transfer != nil)

	return outcome, nil
}

// pickTransfer selects the most relevant ERC-20 Transfer log from a receipt.
// A log from the expected token to the expected recipient wins; otherwise
// the first Transfer log is reported so the rules can name the mismatch.
func pickTransfer(logs []*types.Log, tokenAddress, toAddress string) *Transfer {
	var fallback *Transfer
	for _, l := range logs {
		transfer := ParseTransferLog(l)
		if transfer == nil {
			continue
		}
		if strings.EqualFold(transfer.Token, tokenAddress) && strings.EqualFold(transfer.To, toAddress) {
			return transfer
		}
		if fallback == nil {
			fallback = transfer
		}
	}
	return fallback
}

// ParseTransferLog decodes an ERC-20 Transfer(address,address,uint256) log.
// Returns nil for logs of any other shape.
func ParseTransferLog(l *types.Log) *Transfer {
	if len(l.Topics) != 3 || l.Topics[0] != transferEventTopic {
		return nil
	}
	return &Transfer{
		From:      common.BytesToAddress(l.Topics[1].Bytes()).Hex(),
		To:        common.BytesToAddress(l.Topics[2].Bytes()).Hex(),
		Token:     l.Address.Hex(),
		AmountRaw: new(big.Int).SetBytes(l.Data),
	}
}
