package envelope

import (
	"encoding/json"
	"strings"
)

// Operation payloads embedded in the inscription envelope.
// Off-ledger indexers parse these out of the reveal transaction's
// unlock script, so encoding must be byte-stable: compact JSON with
// a fixed key order. encoding/json emits struct fields in declaration
// order, which pins the key order below.

// KRC-20 transfer payload.
// {"p":"krc-20","op":"transfer","tick":...,"amt":...,"to":...}
type KRC20Transfer struct {
	P    string `json:"p"`
	Op   string `json:"op"`
	Tick string `json:"tick"`
	Amt  string `json:"amt"`
	To   string `json:"to"`
}

func NewKRC20Transfer(tick string, amount string, to string) *KRC20Transfer {
	return &KRC20Transfer{
		P:    "krc-20",
		Op:   "transfer",
		Tick: tick,
		Amt:  amount,
		To:   to,
	}
}

// KRC-721 transfer payload.
// {"op":"transfer","p":"krc-721","tick":...,"to":...,"tokenId":...}
// The tick is lower-cased on construction.
type KRC721Transfer struct {
	Op      string `json:"op"`
	P       string `json:"p"`
	Tick    string `json:"tick"`
	To      string `json:"to"`
	TokenID string `json:"tokenId"`
}

func NewKRC721Transfer(tick string, tokenID string, to string) *KRC721Transfer {
	return &KRC721Transfer{
		Op:      "transfer",
		P:       "krc-721",
		Tick:    strings.ToLower(tick),
		To:      to,
		TokenID: tokenID,
	}
}

// EncodePayload renders a payload as compact JSON bytes.
func EncodePayload(payload interface{}) ([]byte, error) {
	return json.Marshal(payload)
}
