package coin

import (
	"context"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcjson"

	"github.com/bardlex/coinrpc/pkg/errors"
	"github.com/bardlex/coinrpc/pkg/mapper"
	"github.com/bardlex/coinrpc/pkg/rpc"
)

// Verbosity levels accepted by GetRawTransaction.
const (
	RawTxHex     = 0
	RawTxDecoded = 1
)

// AddMultisigAddress adds an nRequired-of-len(keys) multisig address to the
// wallet, in account when it is not blank.
func (s *Service) AddMultisigAddress(ctx context.Context, nRequired int, keys []string, account string) (string, error) {
	return call(ctx, s, mapper.String, "addmultisigaddress",
		rpc.Value(nRequired), rpc.Value(nonNil(keys)), rpc.OptString(account))
}

// CreateMultisig builds an nRequired-of-len(keys) multisig address and its
// redeem script without touching the wallet.
func (s *Service) CreateMultisig(ctx context.Context, nRequired int, keys []string) (*btcjson.CreateMultiSigResult, error) {
	return call(ctx, s, mapper.Object[btcjson.CreateMultiSigResult], "createmultisig",
		rpc.Value(nRequired), rpc.Value(nonNil(keys)))
}

// CreateRawTransaction returns the hex of an unsigned transaction.
func (s *Service) CreateRawTransaction(ctx context.Context, req CreateRawTransactionRequest) (string, error) {
	inputs := req.Inputs
	if inputs == nil {
		inputs = []TxInput{}
	}
	return call(ctx, s, mapper.String, "createrawtransaction",
		rpc.Value(inputs), rpc.Value(toBTC(req.Outputs)))
}

// DecodeRawTransaction decodes a serialized transaction.
func (s *Service) DecodeRawTransaction(ctx context.Context, hexTx string) (*btcjson.TxRawDecodeResult, error) {
	return call(ctx, s, mapper.Object[btcjson.TxRawDecodeResult], "decoderawtransaction", rpc.Value(hexTx))
}

// DecodeScript decodes a hex script.
func (s *Service) DecodeScript(ctx context.Context, hexScript string) (*btcjson.DecodeScriptResult, error) {
	return call(ctx, s, mapper.Object[btcjson.DecodeScriptResult], "decodescript", rpc.Value(hexScript))
}

// GetRawTransaction fetches a transaction by id.
//
// Parameters:
//   - ctx: Context for request cancellation and timeout
//   - txid: Transaction id in display order
//   - verbosity: RawTxHex or RawTxDecoded
//
// Returns:
//   - *RawTransaction: Hex is set for RawTxHex, Info for RawTxDecoded
//   - error: Usage error for any other verbosity, raised before a request
//     is sent; otherwise any error from the daemon
func (s *Service) GetRawTransaction(ctx context.Context, txid string, verbosity int) (*RawTransaction, error) {
	if verbosity != RawTxHex && verbosity != RawTxDecoded {
		return nil, errors.NewUsageError("getrawtransaction",
			fmt.Sprintf("verbosity must be %d or %d, got %d", RawTxHex, RawTxDecoded, verbosity)).
			WithContext("verbosity", verbosity)
	}
	return call(ctx, s, rawTransactionMapper(txid, verbosity == RawTxDecoded), "getrawtransaction",
		rpc.Value(txid), rpc.Value(verbosity))
}

// SendRawTransaction broadcasts a signed transaction and returns its txid.
func (s *Service) SendRawTransaction(ctx context.Context, hexTx string, allowHighFees *bool) (string, error) {
	return call(ctx, s, mapper.String, "sendrawtransaction", rpc.Value(hexTx), rpc.Opt(allowHighFees))
}

// SignRawTransaction signs the inputs of a raw transaction. Empty Inputs or
// PrivateKeys are sent as null so the daemon uses the wallet, and a blank
// SigHashType means SigHashAll.
func (s *Service) SignRawTransaction(ctx context.Context, req SignRawTransactionRequest) (*btcjson.SignRawTransactionResult, error) {
	inputs := rpc.Value(nil)
	if len(req.Inputs) > 0 {
		inputs = rpc.Value(req.Inputs)
	}
	keys := rpc.Value(nil)
	if len(req.PrivateKeys) > 0 {
		keys = rpc.Value(req.PrivateKeys)
	}
	sigHash := strings.TrimSpace(req.SigHashType)
	if sigHash == "" {
		sigHash = SigHashAll
	}

	return call(ctx, s, mapper.Object[btcjson.SignRawTransactionResult], "signrawtransaction",
		rpc.Value(req.RawTxHex), inputs, keys, rpc.Value(sigHash))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
