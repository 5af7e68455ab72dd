package coin

import (
	"context"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"

	"github.com/bardlex/coinrpc/pkg/mapper"
	"github.com/bardlex/coinrpc/pkg/rpc"
)

// GetBestBlockHash returns the hash of the chain tip.
func (s *Service) GetBestBlockHash(ctx context.Context) (string, error) {
	return call(ctx, s, mapper.String, "getbestblockhash")
}

// GetBlock fetches a block by hash.
//
// Parameters:
//   - ctx: Context for request cancellation and timeout
//   - hash: Block hash in display order
//   - verbose: Decoded block when true, serialized hex when false
//
// Returns:
//   - *Block: Block with Info set when verbose, Hex otherwise
//   - error: Any error from the daemon, or a parse error when the reply
//     shape does not match the requested verbosity
func (s *Service) GetBlock(ctx context.Context, hash string, verbose bool) (*Block, error) {
	return call(ctx, s, blockMapper(hash, verbose), "getblock", rpc.Value(hash), rpc.Value(verbose))
}

// GetBlockChainInfo returns the chain state summary.
func (s *Service) GetBlockChainInfo(ctx context.Context) (*btcjson.GetBlockChainInfoResult, error) {
	return call(ctx, s, mapper.Object[btcjson.GetBlockChainInfoResult], "getblockchaininfo")
}

// GetBlockCount returns the height of the chain tip.
func (s *Service) GetBlockCount(ctx context.Context) (int64, error) {
	return call(ctx, s, mapper.Int64, "getblockcount")
}

// GetBlockHash returns the hash of the main chain block at height.
func (s *Service) GetBlockHash(ctx context.Context, height int64) (string, error) {
	return call(ctx, s, mapper.String, "getblockhash", rpc.Value(height))
}

// GetBlockTemplate requests a block template. params are sent as given, so
// callers pick the call variant, usually with a single
// *btcjson.TemplateRequest.
func (s *Service) GetBlockTemplate(ctx context.Context, params ...any) (*btcjson.GetBlockTemplateResult, error) {
	req, err := rpc.NewVariadicRequest("getblocktemplate", nil, params)
	if err != nil {
		return nil, err
	}
	return send(ctx, s, mapper.Object[btcjson.GetBlockTemplateResult], req)
}

// SubmitBlock submits a serialized block. The daemon replies with nothing on
// acceptance, so an empty string means accepted and anything else is the
// rejection reason.
func (s *Service) SubmitBlock(ctx context.Context, hexData string, params ...any) (string, error) {
	req, err := rpc.NewVariadicRequest("submitblock", []rpc.Param{rpc.Value(hexData)}, params)
	if err != nil {
		return "", err
	}
	return send(ctx, s, reason, req)
}

// GetChainTips lists the known branch tips.
func (s *Service) GetChainTips(ctx context.Context) ([]ChainTip, error) {
	return call(ctx, s, mapper.List(mapper.Decode[ChainTip]), "getchaintips")
}

// GetDifficulty returns the proof-of-work difficulty.
func (s *Service) GetDifficulty(ctx context.Context) (float64, error) {
	return call(ctx, s, mapper.Float64, "getdifficulty")
}

// GetMempoolInfo returns mempool size statistics.
func (s *Service) GetMempoolInfo(ctx context.Context) (*btcjson.GetMempoolInfoResult, error) {
	return call(ctx, s, mapper.Object[btcjson.GetMempoolInfoResult], "getmempoolinfo")
}

// GetRawMempool lists mempool transactions. A verbose reply is keyed by txid
// and keeps the daemon's order. Every property of an entry must be known, so
// a daemon that adds one fails the call with an unknown field error.
func (s *Service) GetRawMempool(ctx context.Context, verbose bool) (*RawMempool, error) {
	return call(ctx, s, mapper.Gate(verbose, terseMempool, verboseMempool), "getrawmempool", rpc.Value(verbose))
}

// GetTxOut returns an unspent output, or nil when it is spent or unknown.
func (s *Service) GetTxOut(ctx context.Context, txid string, vout uint32, includeMempool bool) (*btcjson.GetTxOutResult, error) {
	return call(ctx, s, mapper.Object[btcjson.GetTxOutResult], "gettxout",
		rpc.Value(txid), rpc.Value(vout), rpc.Value(includeMempool))
}

// GetTxOutSetInfo returns statistics about the unspent output set.
func (s *Service) GetTxOutSetInfo(ctx context.Context) (*TxOutSetInfo, error) {
	return call(ctx, s, mapper.Object[TxOutSetInfo], "gettxoutsetinfo")
}

// VerifyChain checks the last numBlocks blocks at checkLevel.
func (s *Service) VerifyChain(ctx context.Context, checkLevel uint16, numBlocks uint32) (bool, error) {
	return call(ctx, s, mapper.Bool, "verifychain", rpc.Value(checkLevel), rpc.Value(numBlocks))
}

// AddNode adds, removes or tries a peer.
func (s *Service) AddNode(ctx context.Context, node string, action NodeAction) error {
	return exec(ctx, s, "addnode", rpc.Value(node), rpc.Value(string(action)))
}

// GetAddedNodeInfo reports on peers added with AddNode. A blank node reports
// all of them.
func (s *Service) GetAddedNodeInfo(ctx context.Context, dns bool, node string) ([]btcjson.GetAddedNodeInfoResult, error) {
	return call(ctx, s, mapper.List(mapper.Decode[btcjson.GetAddedNodeInfoResult]), "getaddednodeinfo",
		rpc.Value(dns), rpc.OptString(node))
}

// GetConnectionCount returns the number of peer connections.
func (s *Service) GetConnectionCount(ctx context.Context) (int32, error) {
	return call(ctx, s, mapper.Int32, "getconnectioncount")
}

// GetNetTotals returns network traffic counters.
func (s *Service) GetNetTotals(ctx context.Context) (*btcjson.GetNetTotalsResult, error) {
	return call(ctx, s, mapper.Object[btcjson.GetNetTotalsResult], "getnettotals")
}

// GetNetworkInfo returns the node's network state.
func (s *Service) GetNetworkInfo(ctx context.Context) (*btcjson.GetNetworkInfoResult, error) {
	return call(ctx, s, mapper.Object[btcjson.GetNetworkInfoResult], "getnetworkinfo")
}

// GetPeerInfo returns one entry per connected peer.
func (s *Service) GetPeerInfo(ctx context.Context) ([]btcjson.GetPeerInfoResult, error) {
	return call(ctx, s, mapper.List(mapper.Decode[btcjson.GetPeerInfoResult]), "getpeerinfo")
}

// Ping asks the daemon to ping its peers.
func (s *Service) Ping(ctx context.Context) error {
	return exec(ctx, s, "ping")
}

// GetInfo returns the legacy combined node and wallet summary.
func (s *Service) GetInfo(ctx context.Context) (*btcjson.InfoWalletResult, error) {
	return call(ctx, s, mapper.Object[btcjson.InfoWalletResult], "getinfo")
}

// GetGenerate reports whether the built-in miner is on.
func (s *Service) GetGenerate(ctx context.Context) (bool, error) {
	return call(ctx, s, mapper.Bool, "getgenerate")
}

// SetGenerate turns the built-in miner on or off. procLimit caps the worker
// threads, -1 for one per core.
func (s *Service) SetGenerate(ctx context.Context, generate bool, procLimit int16) error {
	return exec(ctx, s, "setgenerate", rpc.Value(generate), rpc.Value(procLimit))
}

// GetHashesPerSec returns the built-in miner's hash rate.
func (s *Service) GetHashesPerSec(ctx context.Context) (int64, error) {
	return call(ctx, s, mapper.Int64, "gethashespersec")
}

// GetMiningInfo returns mining related state.
func (s *Service) GetMiningInfo(ctx context.Context) (*btcjson.GetMiningInfoResult, error) {
	return call(ctx, s, mapper.Object[btcjson.GetMiningInfoResult], "getmininginfo")
}

// GetNetworkHashPS estimates the network hash rate over the last blocks
// ending at height. Nil arguments take the daemon defaults (120 blocks, tip);
// height can only be given together with blocks.
func (s *Service) GetNetworkHashPS(ctx context.Context, blocks *int, height *int64) (float64, error) {
	return call(ctx, s, mapper.Float64, "getnetworkhashps", rpc.Opt(blocks), rpc.Opt(height))
}

// PrioritiseTransaction changes the mining priority of a mempool
// transaction. feeDelta is sent in satoshis.
func (s *Service) PrioritiseTransaction(ctx context.Context, txid string, priorityDelta float64, feeDelta btcutil.Amount) (bool, error) {
	return call(ctx, s, mapper.Bool, "prioritisetransaction",
		rpc.Value(txid), rpc.Value(priorityDelta), rpc.Value(int64(feeDelta)))
}

// EstimateFee returns the fee per kilobyte for confirmation within blocks.
// The daemon reports -1 coin when it has no estimate.
func (s *Service) EstimateFee(ctx context.Context, blocks uint16) (btcutil.Amount, error) {
	return call(ctx, s, mapper.Amount, "estimatefee", rpc.Value(blocks))
}

// EstimatePriority returns the priority needed for a zero-fee transaction to
// confirm within blocks.
func (s *Service) EstimatePriority(ctx context.Context, blocks uint16) (float64, error) {
	return call(ctx, s, mapper.Float64, "estimatepriority", rpc.Value(blocks))
}

// Help returns the daemon help text for command, or the command list when
// command is blank.
func (s *Service) Help(ctx context.Context, command string) (string, error) {
	return call(ctx, s, mapper.String, "help", rpc.OptString(command))
}

// Stop asks the daemon to shut down.
func (s *Service) Stop(ctx context.Context) (string, error) {
	return call(ctx, s, mapper.String, "stop")
}

// ValidateAddress returns what the daemon and its wallet know about address.
func (s *Service) ValidateAddress(ctx context.Context, address string) (*btcjson.ValidateAddressWalletResult, error) {
	return call(ctx, s, mapper.Object[btcjson.ValidateAddressWalletResult], "validateaddress", rpc.Value(address))
}

// VerifyMessage checks a message signature made with SignMessage.
func (s *Service) VerifyMessage(ctx context.Context, address, signature, message string) (bool, error) {
	return call(ctx, s, mapper.Bool, "verifymessage", rpc.Value(address), rpc.Value(signature), rpc.Value(message))
}
