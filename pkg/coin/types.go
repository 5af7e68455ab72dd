package coin

import (
	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
)

// Wildcard selects every account, or every block, on calls that accept it.
const Wildcard = "*"

// NodeAction is the addnode command verb.
type NodeAction string

const (
	NodeAdd    NodeAction = "add"
	NodeRemove NodeAction = "remove"
	NodeOneTry NodeAction = "onetry"
)

// Signature hash types accepted by signrawtransaction.
const (
	SigHashAll                = "ALL"
	SigHashNone               = "NONE"
	SigHashSingle             = "SINGLE"
	SigHashAllAnyoneCanPay    = "ALL|ANYONECANPAY"
	SigHashNoneAnyoneCanPay   = "NONE|ANYONECANPAY"
	SigHashSingleAnyoneCanPay = "SINGLE|ANYONECANPAY"
)

// MempoolFees is the fee breakdown newer daemons nest under "fees".
type MempoolFees struct {
	Base       btcutil.Amount
	Modified   btcutil.Amount
	Ancestor   btcutil.Amount
	Descendant btcutil.Amount
}

// MempoolEntry is one transaction of a verbose getrawmempool reply. Fields a
// daemon version does not report keep their zero value.
type MempoolEntry struct {
	TxID              string
	Size              int64
	VSize             int64
	Weight            int64
	Fee               btcutil.Amount
	ModifiedFee       btcutil.Amount
	Time              int64
	Height            int64
	StartingPriority  float64
	CurrentPriority   float64
	DescendantCount   int64
	DescendantSize    int64
	DescendantFees    btcutil.Amount
	AncestorCount     int64
	AncestorSize      int64
	AncestorFees      btcutil.Amount
	WTxID             string
	Fees              MempoolFees
	Depends           []string
	SpentBy           []string
	BIP125Replaceable bool
	Unbroadcast       bool
}

// RawMempool is a getrawmempool reply. TxIDs is always filled, in the order
// the daemon listed them. Entries is only filled for verbose replies and
// follows the same order.
type RawMempool struct {
	Verbose bool
	TxIDs   []string
	Entries []MempoolEntry
}

// Entry returns the verbose entry for txid.
func (m *RawMempool) Entry(txid string) (MempoolEntry, bool) {
	for _, e := range m.Entries {
		if e.TxID == txid {
			return e, true
		}
	}
	return MempoolEntry{}, false
}

// AddressGrouping is one address of a listaddressgroupings group.
type AddressGrouping struct {
	Address string
	Balance btcutil.Amount
	Account *string
}

// Block is a getblock reply. Hex is set for terse requests and Info for
// verbose ones.
type Block struct {
	Hash string
	Hex  string
	Info *btcjson.GetBlockVerboseResult
}

// RawTransaction is a getrawtransaction reply. Hex is set for verbosity 0
// and Info for verbosity 1.
type RawTransaction struct {
	TxID string
	Hex  string
	Info *btcjson.TxRawResult
}

// ChainTip is one entry of getchaintips.
type ChainTip struct {
	Height    int64  `json:"height"`
	Hash      string `json:"hash"`
	BranchLen int64  `json:"branchlen"`
	Status    string `json:"status"`
}

// WalletInfo is the getwalletinfo reply.
type WalletInfo struct {
	WalletName         string  `json:"walletname"`
	WalletVersion      int64   `json:"walletversion"`
	Balance            float64 `json:"balance"`
	UnconfirmedBalance float64 `json:"unconfirmed_balance"`
	ImmatureBalance    float64 `json:"immature_balance"`
	TxCount            int64   `json:"txcount"`
	KeyPoolOldest      int64   `json:"keypoololdest"`
	KeyPoolSize        int64   `json:"keypoolsize"`
	UnlockedUntil      *int64  `json:"unlocked_until,omitempty"`
	PayTxFee           float64 `json:"paytxfee"`
	HDMasterKeyID      string  `json:"hdmasterkeyid,omitempty"`
}

// TxOutSetInfo is the gettxoutsetinfo reply.
type TxOutSetInfo struct {
	Height          int64   `json:"height"`
	BestBlock       string  `json:"bestblock"`
	Transactions    int64   `json:"transactions"`
	TxOuts          int64   `json:"txouts"`
	BytesSerialized int64   `json:"bytes_serialized"`
	HashSerialized  string  `json:"hash_serialized"`
	TotalAmount     float64 `json:"total_amount"`
}

// TxInput names an output by txid and index.
type TxInput = btcjson.TransactionInput

// CreateRawTransactionRequest spends Inputs to the address amounts in Outputs.
type CreateRawTransactionRequest struct {
	Inputs  []TxInput
	Outputs map[string]btcutil.Amount
}

// SignRawTransactionRequest signs RawTxHex. Inputs and PrivateKeys are
// optional, and a blank SigHashType means SigHashAll.
type SignRawTransactionRequest struct {
	RawTxHex    string
	Inputs      []btcjson.RawTxInput
	PrivateKeys []string
	SigHashType string
}

// OutPoints returns the outpoints of unspent outputs, in the form lockunspent
// expects.
func OutPoints(unspent []btcjson.ListUnspentResult) []TxInput {
	out := make([]TxInput, 0, len(unspent))
	for _, u := range unspent {
		out = append(out, TxInput{Txid: u.TxID, Vout: u.Vout})
	}
	return out
}

func toBTC(amounts map[string]btcutil.Amount) map[string]float64 {
	out := make(map[string]float64, len(amounts))
	for addr, a := range amounts {
		out[addr] = a.ToBTC()
	}
	return out
}
