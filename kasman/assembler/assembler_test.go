package assembler

import (
	"testing"

	"github.com/kaspanet/kaspad/domain/dagconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/envelope"
	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/utxo"
)

// throwaway key, regtest-grade
const testPrivKeyHex = "0000000000000000000000000000000000000000000000000000000000000001"

func newTestAssembler(t *testing.T) *Assembler {
	a, err := NewAssembler(testPrivKeyHex, &dagconfig.MainnetParams)
	require.NoError(t, err)
	return a
}

func treasuryEntry(a *Assembler, txID string, amount uint64) *utxo.UTXOEntry {
	return &utxo.UTXOEntry{
		Outpoint:        utxo.Outpoint{TransactionID: txID, Index: 0},
		Address:         a.Address.EncodeAddress(),
		Amount:          amount,
		ScriptPublicKey: append([]byte{}, a.treasuryScript...),
	}
}

func TestNewAssemblerDerivesAddress(t *testing.T) {
	a := newTestAssembler(t)
	assert.Len(t, a.PublicKey, 32)
	assert.Contains(t, a.Address.EncodeAddress(), "kaspa:")
}

func TestMakeTransferTxWithChange(t *testing.T) {
	a := newTestAssembler(t)
	fee := uint64(10_000)
	entries := []*utxo.UTXOEntry{treasuryEntry(a,
		"1111111111111111111111111111111111111111111111111111111111111111", 6*utxo.SompiPerKaspa)}

	tx, err := a.MakeTransferTx(entries, nil,
		[]Output{{Address: a.Address.EncodeAddress(), Amount: 5 * utxo.SompiPerKaspa}},
		a.Address.EncodeAddress(), fee)
	require.NoError(t, err)

	require.Len(t, tx.Inputs, 1)
	require.Len(t, tx.Outputs, 2)
	assert.Equal(t, 5*utxo.SompiPerKaspa, tx.Outputs[0].Value)
	assert.Equal(t, utxo.SompiPerKaspa-fee, tx.Outputs[1].Value)
	// treasury input is signed during assembly
	assert.NotEmpty(t, tx.Inputs[0].SignatureScript)
	assert.NotEmpty(t, TransactionID(tx))
}

func TestMakeTransferTxInsufficientInputs(t *testing.T) {
	a := newTestAssembler(t)
	entries := []*utxo.UTXOEntry{treasuryEntry(a,
		"1111111111111111111111111111111111111111111111111111111111111111", utxo.SompiPerKaspa)}

	_, err := a.MakeTransferTx(entries, nil,
		[]Output{{Address: a.Address.EncodeAddress(), Amount: 5 * utxo.SompiPerKaspa}},
		a.Address.EncodeAddress(), 10_000)
	assert.Error(t, err)
}

func TestFillRevealInput(t *testing.T) {
	a := newTestAssembler(t)
	env, err := envelope.Build(a.PublicKey, envelope.MarkerKasplex,
		envelope.NewKRC20Transfer("NACHO", "100", a.Address.EncodeAddress()),
		dagconfig.MainnetParams.Prefix)
	require.NoError(t, err)

	p2shScript, err := env.ScriptPublicKey()
	require.NoError(t, err)

	p2shEntry := &utxo.UTXOEntry{
		Outpoint:        utxo.Outpoint{TransactionID: "2222222222222222222222222222222222222222222222222222222222222222", Index: 0},
		Address:         env.P2SHAddress.EncodeAddress(),
		Amount:          5 * utxo.SompiPerKaspa,
		ScriptPublicKey: p2shScript.Script,
		ScriptVersion:   p2shScript.Version,
	}
	feeEntry := treasuryEntry(a,
		"3333333333333333333333333333333333333333333333333333333333333333", utxo.SompiPerKaspa)

	tx, err := a.MakeTransferTx(
		[]*utxo.UTXOEntry{p2shEntry},
		[]*utxo.UTXOEntry{feeEntry},
		[]Output{{Address: a.Address.EncodeAddress(), Amount: 5 * utxo.SompiPerKaspa}},
		a.Address.EncodeAddress(), 10_000)
	require.NoError(t, err)

	// the P2SH input is the blank one
	assert.Empty(t, tx.Inputs[0].SignatureScript)
	assert.NotEmpty(t, tx.Inputs[1].SignatureScript)

	err = a.FillRevealInput(tx, env)
	require.NoError(t, err)
	assert.NotEmpty(t, tx.Inputs[0].SignatureScript)
	// the unlock script presents the redeem script itself
	assert.Contains(t, string(tx.Inputs[0].SignatureScript), string(env.RedeemScript))
}

func TestFillRevealInputNoBlank(t *testing.T) {
	a := newTestAssembler(t)
	env, err := envelope.Build(a.PublicKey, envelope.MarkerKasplex,
		envelope.NewKRC20Transfer("NACHO", "100", a.Address.EncodeAddress()),
		dagconfig.MainnetParams.Prefix)
	require.NoError(t, err)

	entries := []*utxo.UTXOEntry{treasuryEntry(a,
		"1111111111111111111111111111111111111111111111111111111111111111", 6*utxo.SompiPerKaspa)}
	tx, err := a.MakeTransferTx(entries, nil,
		[]Output{{Address: a.Address.EncodeAddress(), Amount: 5 * utxo.SompiPerKaspa}},
		a.Address.EncodeAddress(), 10_000)
	require.NoError(t, err)

	assert.Error(t, a.FillRevealInput(tx, env))
}
