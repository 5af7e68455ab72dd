package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"

	"github.com/bardlex/coinrpc/pkg/coin"
	"github.com/bardlex/coinrpc/pkg/mapper"
)

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", out)
	return err
}

// coinAmount prints as an exact decimal coin value.
type coinAmount btcutil.Amount

func (a coinAmount) MarshalJSON() ([]byte, error) {
	return []byte(mapper.FormatAmount(btcutil.Amount(a))), nil
}

type mempoolFeesView struct {
	Base       coinAmount `json:"base"`
	Modified   coinAmount `json:"modified"`
	Ancestor   coinAmount `json:"ancestor"`
	Descendant coinAmount `json:"descendant"`
}

type mempoolEntryView struct {
	TxID              string          `json:"txid"`
	Size              int64           `json:"size"`
	VSize             int64           `json:"vsize,omitempty"`
	Weight            int64           `json:"weight,omitempty"`
	Fee               coinAmount      `json:"fee"`
	ModifiedFee       coinAmount      `json:"modifiedfee"`
	Time              int64           `json:"time"`
	Height            int64           `json:"height"`
	DescendantCount   int64           `json:"descendantcount"`
	DescendantSize    int64           `json:"descendantsize"`
	AncestorCount     int64           `json:"ancestorcount"`
	AncestorSize      int64           `json:"ancestorsize"`
	WTxID             string          `json:"wtxid,omitempty"`
	Fees              mempoolFeesView `json:"fees"`
	Depends           []string        `json:"depends"`
	SpentBy           []string        `json:"spentby"`
	BIP125Replaceable bool            `json:"bip125-replaceable"`
}

func mempoolView(pool *coin.RawMempool) []mempoolEntryView {
	out := make([]mempoolEntryView, 0, len(pool.Entries))
	for _, e := range pool.Entries {
		out = append(out, mempoolEntryView{
			TxID:            e.TxID,
			Size:            e.Size,
			VSize:           e.VSize,
			Weight:          e.Weight,
			Fee:             coinAmount(e.Fee),
			ModifiedFee:     coinAmount(e.ModifiedFee),
			Time:            e.Time,
			Height:          e.Height,
			DescendantCount: e.DescendantCount,
			DescendantSize:  e.DescendantSize,
			AncestorCount:   e.AncestorCount,
			AncestorSize:    e.AncestorSize,
			WTxID:           e.WTxID,
			Fees: mempoolFeesView{
				Base:       coinAmount(e.Fees.Base),
				Modified:   coinAmount(e.Fees.Modified),
				Ancestor:   coinAmount(e.Fees.Ancestor),
				Descendant: coinAmount(e.Fees.Descendant),
			},
			Depends:           e.Depends,
			SpentBy:           e.SpentBy,
			BIP125Replaceable: e.BIP125Replaceable,
		})
	}
	return out
}

type groupingView struct {
	Address string     `json:"address"`
	Balance coinAmount `json:"balance"`
	Account *string    `json:"account,omitempty"`
}

func groupingsView(groups [][]coin.AddressGrouping) [][]groupingView {
	out := make([][]groupingView, len(groups))
	for i, group := range groups {
		out[i] = make([]groupingView, len(group))
		for j, g := range group {
			out[i][j] = groupingView{Address: g.Address, Balance: coinAmount(g.Balance), Account: g.Account}
		}
	}
	return out
}

type addressView struct {
	Address      string `json:"address"`
	IsValid      bool   `json:"isvalid"`
	ScriptPubKey string `json:"scriptPubKey,omitempty"`
	Error        string `json:"error,omitempty"`
}

func scriptHex(addr btcutil.Address) string {
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return ""
	}
	return hex.EncodeToString(script)
}
