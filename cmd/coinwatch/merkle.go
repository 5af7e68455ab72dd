package main

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// merkleRoot calculates the header merkle root of txs from their
// non-witness hashes. An odd level pairs its last hash with itself.
func merkleRoot(txs []*wire.MsgTx) chainhash.Hash {
	if len(txs) == 0 {
		return chainhash.Hash{}
	}

	level := make([]chainhash.Hash, len(txs))
	for i, tx := range txs {
		level[i] = tx.TxHash()
	}

	var pair [2 * chainhash.HashSize]byte
	for len(level) > 1 {
		next := level[:0]
		for i := 0; i < len(level); i += 2 {
			right := level[i]
			if i+1 < len(level) {
				right = level[i+1]
			}
			copy(pair[:chainhash.HashSize], level[i][:])
			copy(pair[chainhash.HashSize:], right[:])
			next = append(next, chainhash.DoubleHashH(pair[:]))
		}
		level = next
	}

	return level[0]
}
