package envelope

import (
	"strings"
	"testing"

	"github.com/kaspanet/kaspad/util"
	"github.com/stretchr/testify/assert"
)

func testPubKey() []byte {
	pk := make([]byte, 32)
	for i := range pk {
		pk[i] = byte(i + 1)
	}
	return pk
}

func TestKRC20PayloadEncoding(t *testing.T) {
	payload := NewKRC20Transfer("NACHO", "100", "kaspa:dest1")
	encoded, err := EncodePayload(payload)
	assert.NoError(t, err)
	// key order is part of the protocol, not just cosmetics
	assert.Equal(t,
		`{"p":"krc-20","op":"transfer","tick":"NACHO","amt":"100","to":"kaspa:dest1"}`,
		string(encoded))
}

func TestKRC721PayloadEncoding(t *testing.T) {
	payload := NewKRC721Transfer("KATS", "42", "kaspa:dest1")
	encoded, err := EncodePayload(payload)
	assert.NoError(t, err)
	assert.Equal(t,
		`{"op":"transfer","p":"krc-721","tick":"kats","to":"kaspa:dest1","tokenId":"42"}`,
		string(encoded))
}

func TestBuildDeterministic(t *testing.T) {
	payload := NewKRC20Transfer("NACHO", "100", "kaspa:dest1")

	first, err := Build(testPubKey(), MarkerKasplex, payload, util.Bech32PrefixKaspa)
	assert.NoError(t, err)
	second, err := Build(testPubKey(), MarkerKasplex, payload, util.Bech32PrefixKaspa)
	assert.NoError(t, err)

	assert.Equal(t, first.RedeemScript, second.RedeemScript)
	assert.Equal(t, first.P2SHAddress.String(), second.P2SHAddress.String())
	assert.True(t, first.Equal(second))
}

func TestBuildPayloadChangesAddress(t *testing.T) {
	base, err := Build(testPubKey(), MarkerKasplex,
		NewKRC20Transfer("NACHO", "100", "kaspa:dest1"), util.Bech32PrefixKaspa)
	assert.NoError(t, err)

	changed, err := Build(testPubKey(), MarkerKasplex,
		NewKRC20Transfer("NACHO", "101", "kaspa:dest1"), util.Bech32PrefixKaspa)
	assert.NoError(t, err)

	assert.NotEqual(t, base.P2SHAddress.String(), changed.P2SHAddress.String())
	assert.False(t, base.Equal(changed))
}

func TestBuildNetworkSpecificAddress(t *testing.T) {
	payload := NewKRC721Transfer("KATS", "1", "kaspa:dest1")

	mainnet, err := Build(testPubKey(), MarkerKasplex, payload, util.Bech32PrefixKaspa)
	assert.NoError(t, err)
	testnet, err := Build(testPubKey(), MarkerKasplex, payload, util.Bech32PrefixKaspaTest)
	assert.NoError(t, err)

	assert.True(t, strings.HasPrefix(mainnet.P2SHAddress.String(), "kaspa:"))
	assert.True(t, strings.HasPrefix(testnet.P2SHAddress.String(), "kaspatest:"))
	assert.NotEqual(t, mainnet.P2SHAddress.String(), testnet.P2SHAddress.String())
}

func TestBuildRejectsBadInput(t *testing.T) {
	payload := NewKRC20Transfer("NACHO", "100", "kaspa:dest1")

	_, err := Build([]byte{0x01, 0x02}, MarkerKasplex, payload, util.Bech32PrefixKaspa)
	assert.Error(t, err)

	_, err = Build(testPubKey(), "", payload, util.Bech32PrefixKaspa)
	assert.Error(t, err)
}

func TestSignatureScriptEmbedsRedeemScript(t *testing.T) {
	payload := NewKRC20Transfer("NACHO", "100", "kaspa:dest1")
	env, err := Build(testPubKey(), MarkerKasplex, payload, util.Bech32PrefixKaspa)
	assert.NoError(t, err)

	sig := make([]byte, 65)
	unlock, err := env.SignatureScript(sig)
	assert.NoError(t, err)
	// the unlock script carries both the signature and the full redeem script
	assert.Greater(t, len(unlock), len(env.RedeemScript))
	assert.Contains(t, string(unlock), string(env.RedeemScript))
}
