package coin

import (
	"encoding/json"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"

	"github.com/bardlex/coinrpc/pkg/mapper"
)

// satoshis maps integer satoshi counts, used by the ancestor and descendant
// fee totals.
var satoshis = mapper.Map(mapper.Int64, func(v int64) btcutil.Amount { return btcutil.Amount(v) })

var mempoolFeesTable = mapper.FieldTable[MempoolFees]{
	"base":       mapper.Field(mapper.Amount, func(f *MempoolFees) *btcutil.Amount { return &f.Base }),
	"modified":   mapper.Field(mapper.Amount, func(f *MempoolFees) *btcutil.Amount { return &f.Modified }),
	"ancestor":   mapper.Field(mapper.Amount, func(f *MempoolFees) *btcutil.Amount { return &f.Ancestor }),
	"descendant": mapper.Field(mapper.Amount, func(f *MempoolFees) *btcutil.Amount { return &f.Descendant }),
}

// mempoolTable covers the properties of both the priority-era and the
// fee-breakdown mempool replies.
var mempoolTable = mapper.FieldTable[MempoolEntry]{
	"size":               mapper.Field(mapper.Int64, func(e *MempoolEntry) *int64 { return &e.Size }),
	"vsize":              mapper.Field(mapper.Int64, func(e *MempoolEntry) *int64 { return &e.VSize }),
	"weight":             mapper.Field(mapper.Int64, func(e *MempoolEntry) *int64 { return &e.Weight }),
	"fee":                mapper.Field(mapper.Amount, func(e *MempoolEntry) *btcutil.Amount { return &e.Fee }),
	"modifiedfee":        mapper.Field(mapper.Amount, func(e *MempoolEntry) *btcutil.Amount { return &e.ModifiedFee }),
	"time":               mapper.Field(mapper.Int64, func(e *MempoolEntry) *int64 { return &e.Time }),
	"height":             mapper.Field(mapper.Int64, func(e *MempoolEntry) *int64 { return &e.Height }),
	"startingpriority":   mapper.Field(mapper.Float64, func(e *MempoolEntry) *float64 { return &e.StartingPriority }),
	"currentpriority":    mapper.Field(mapper.Float64, func(e *MempoolEntry) *float64 { return &e.CurrentPriority }),
	"descendantcount":    mapper.Field(mapper.Int64, func(e *MempoolEntry) *int64 { return &e.DescendantCount }),
	"descendantsize":     mapper.Field(mapper.Int64, func(e *MempoolEntry) *int64 { return &e.DescendantSize }),
	"descendantfees":     mapper.Field(satoshis, func(e *MempoolEntry) *btcutil.Amount { return &e.DescendantFees }),
	"ancestorcount":      mapper.Field(mapper.Int64, func(e *MempoolEntry) *int64 { return &e.AncestorCount }),
	"ancestorsize":       mapper.Field(mapper.Int64, func(e *MempoolEntry) *int64 { return &e.AncestorSize }),
	"ancestorfees":       mapper.Field(satoshis, func(e *MempoolEntry) *btcutil.Amount { return &e.AncestorFees }),
	"wtxid":              mapper.Field(mapper.String, func(e *MempoolEntry) *string { return &e.WTxID }),
	"fees":               mapper.Nested(mempoolFeesTable, func(e *MempoolEntry) *MempoolFees { return &e.Fees }),
	"depends":            mapper.Field(mapper.List(mapper.String), func(e *MempoolEntry) *[]string { return &e.Depends }),
	"spentby":            mapper.Field(mapper.List(mapper.String), func(e *MempoolEntry) *[]string { return &e.SpentBy }),
	"bip125-replaceable": mapper.Field(mapper.Bool, func(e *MempoolEntry) *bool { return &e.BIP125Replaceable }),
	"unbroadcast":        mapper.Field(mapper.Bool, func(e *MempoolEntry) *bool { return &e.Unbroadcast }),
}

func newMempoolEntry(txid string) MempoolEntry {
	return MempoolEntry{TxID: txid, Depends: []string{}, SpentBy: []string{}}
}

var (
	terseMempool = mapper.Map(mapper.List(mapper.String), func(ids []string) *RawMempool {
		return &RawMempool{TxIDs: ids}
	})

	verboseMempool = mapper.Map(mapper.Keyed(mempoolTable, newMempoolEntry), func(entries []mapper.Entry[MempoolEntry]) *RawMempool {
		pool := &RawMempool{
			Verbose: true,
			TxIDs:   make([]string, 0, len(entries)),
			Entries: make([]MempoolEntry, 0, len(entries)),
		}
		for _, e := range entries {
			pool.TxIDs = append(pool.TxIDs, e.Key)
			pool.Entries = append(pool.Entries, e.Value)
		}
		return pool
	})
)

// buildGrouping maps an [address, balance] or [address, balance, account]
// tuple.
func buildGrouping(op string, tuple []json.RawMessage) (AddressGrouping, error) {
	var g AddressGrouping
	var err error
	if g.Address, err = mapper.String(op, tuple[0]); err != nil {
		return AddressGrouping{}, err
	}
	if g.Balance, err = mapper.Amount(op, tuple[1]); err != nil {
		return AddressGrouping{}, err
	}
	if len(tuple) > 2 {
		account, err := mapper.String(op, tuple[2])
		if err != nil {
			return AddressGrouping{}, err
		}
		g.Account = &account
	}
	return g, nil
}

var addressGroupings = mapper.TupleGroups(2, buildGrouping)

func blockMapper(hash string, verbose bool) mapper.Func[*Block] {
	terse := mapper.Map(mapper.String, func(hex string) *Block {
		return &Block{Hash: hash, Hex: hex}
	})
	detailed := mapper.Map(mapper.Object[btcjson.GetBlockVerboseResult], func(info *btcjson.GetBlockVerboseResult) *Block {
		if info == nil {
			return nil
		}
		return &Block{Hash: hash, Info: info}
	})
	return mapper.Gate(verbose, terse, detailed)
}

func rawTransactionMapper(txid string, verbose bool) mapper.Func[*RawTransaction] {
	terse := mapper.Map(mapper.String, func(hex string) *RawTransaction {
		return &RawTransaction{TxID: txid, Hex: hex}
	})
	detailed := mapper.Map(mapper.Object[btcjson.TxRawResult], func(info *btcjson.TxRawResult) *RawTransaction {
		if info == nil {
			return nil
		}
		return &RawTransaction{TxID: txid, Info: info}
	})
	return mapper.Gate(verbose, terse, detailed)
}

// reason maps a reply that is null on success and a string otherwise.
func reason(op string, raw json.RawMessage) (string, error) {
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		return mapper.String(op, raw)
	}
	if s == nil {
		return "", nil
	}
	return *s, nil
}
