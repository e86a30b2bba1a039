/*
This file contains low-level custom data structures used across the program related to kaspa.
  - Outpoint: reference to a previous transaction output.
  - UTXOEntry: the unspent transaction output as reported by the kaspa node.
*/
package utxo

// Sompi is the base denomination of kaspa.
// 1 KAS = 1e8 sompi.
const (
	SompiPerKaspa = uint64(100_000_000)

	// Thresholds for funding-input selection.
	// Prefer a UTXO of >= 5 KAS, accept >= 1 KAS as a fallback.
	PreferredMinUTXO = 5 * SompiPerKaspa
	AbsoluteMinUTXO  = 1 * SompiPerKaspa
)

// Outpoint identifies a previous transaction output.
type Outpoint struct {
	TransactionID string // Identifier, human readable hex
	Index         uint32 // exact index of the Tx's outputs to be spent
}

// Represents the unspent transaction output (UTXO)
// in our program. It is a snapshot fetched from the node,
// not live state.
type UTXOEntry struct {
	Outpoint        Outpoint
	Address         string // owner address (kaspa:... / kaspatest:...)
	Amount          uint64 // in sompi
	ScriptPublicKey []byte // locking script itself
	ScriptVersion   uint16 // version of the locking script
	BlockDAAScore   uint64 // DAA score of the containing block
	IsCoinbase      bool
}

// Return a human-readable amount in KAS.
// eg. 1e8 (sompi) = 1.0 (KAS)
func (u *UTXOEntry) AmountHuman() float64 {
	return float64(u.Amount) / float64(SompiPerKaspa)
}
