/*
Package envelope builds the kasplex inscription envelope script and its
pay-to-script-hash address.

The envelope is a spendable redeem script of the shape

	<x-only pubkey> OP_CHECKSIG
	OP_FALSE OP_IF <marker> <0> <payload json> OP_ENDIF

The OP_IF branch is never executed at spend time; it only carries the
operation payload so indexers can read it from the reveal transaction.
Spending the P2SH output requires a schnorr signature for the embedded
public key.
*/
package envelope

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/kaspanet/kaspad/domain/consensus/model/externalapi"
	"github.com/kaspanet/kaspad/domain/consensus/utils/txscript"
	"github.com/kaspanet/kaspad/util"
)

// Protocol markers recognized by off-ledger indexers.
const (
	MarkerKasplex = "kasplex"
	MarkerKSPR    = "kspr"
)

const xOnlyPubKeyLength = 32

// Envelope is the derived script artifact for one transfer operation.
// It is a deterministic function of (publicKey, marker, payload) and the
// network prefix; the reveal phase must reproduce it byte for byte.
type Envelope struct {
	PublicKey    []byte       // 32-byte x-only schnorr public key
	Marker       string       // protocol marker, eg. "kasplex"
	Payload      []byte       // canonical JSON bytes of the operation
	RedeemScript []byte       // the envelope script itself
	P2SHAddress  util.Address // script-hash address on the given network
}

// Build constructs the envelope script and derives its P2SH address.
// The address is network-specific; never reuse an envelope across prefixes.
func Build(publicKey []byte, marker string, payload interface{}, prefix util.Bech32Prefix) (*Envelope, error) {
	if len(publicKey) != xOnlyPubKeyLength {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", xOnlyPubKeyLength, len(publicKey))
	}
	if marker == "" {
		return nil, errors.New("empty protocol marker")
	}

	payloadJSON, err := EncodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope payload: %v", err)
	}

	script, err := txscript.NewScriptBuilder().
		AddData(publicKey).
		AddOp(txscript.OpCheckSig).
		AddOp(txscript.OpFalse).
		AddOp(txscript.OpIf).
		AddData([]byte(marker)).
		AddInt64(0).
		AddData(payloadJSON).
		AddOp(txscript.OpEndIf).
		Script()
	if err != nil {
		return nil, fmt.Errorf("failed to build envelope script: %v", err)
	}

	p2shAddress, err := util.NewAddressScriptHash(script, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to derive P2SH address: %v", err)
	}

	return &Envelope{
		PublicKey:    publicKey,
		Marker:       marker,
		Payload:      payloadJSON,
		RedeemScript: script,
		P2SHAddress:  p2shAddress,
	}, nil
}

// ScriptPublicKey returns the locking script paying to the envelope's
// P2SH address (the commit transaction's output script).
func (e *Envelope) ScriptPublicKey() (*externalapi.ScriptPublicKey, error) {
	return txscript.PayToAddrScript(e.P2SHAddress)
}

// SignatureScript encodes the reveal-phase unlock script: the schnorr
// signature followed by the serialized redeem script.
func (e *Envelope) SignatureScript(signature []byte) ([]byte, error) {
	return txscript.PayToScriptHashSignatureScript(e.RedeemScript, signature)
}

// Equal reports whether two envelopes are byte-identical.
func (e *Envelope) Equal(other *Envelope) bool {
	if other == nil {
		return false
	}
	return bytes.Equal(e.RedeemScript, other.RedeemScript) &&
		e.P2SHAddress.String() == other.P2SHAddress.String()
}
