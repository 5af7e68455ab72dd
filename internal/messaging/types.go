package messaging

import "time"

// BlockEvent announces a block seen by the daemon.
type BlockEvent struct {
	Coin         string    `json:"coin"`
	Network      string    `json:"network"`
	Hash         string    `json:"hash"`
	Height       int64     `json:"height,omitempty"`
	PreviousHash string    `json:"previous_hash,omitempty"`
	Time         time.Time `json:"time"`
	TxCount      int       `json:"tx_count"`
	Size         int32     `json:"size,omitempty"`
	Difficulty   float64   `json:"difficulty,omitempty"`
	Sequence     uint32    `json:"sequence"`
	ObservedAt   time.Time `json:"observed_at"`
}

// TxEvent announces a transaction entering the daemon's mempool or a block.
type TxEvent struct {
	Coin       string    `json:"coin"`
	Network    string    `json:"network"`
	TxID       string    `json:"txid"`
	Size       int32     `json:"size"`
	VSize      int32     `json:"vsize,omitempty"`
	Inputs     int       `json:"inputs"`
	Outputs    int       `json:"outputs"`
	TotalOut   int64     `json:"total_out_sats"`
	Coinbase   bool      `json:"coinbase,omitempty"`
	Sequence   uint32    `json:"sequence"`
	ObservedAt time.Time `json:"observed_at"`
}
