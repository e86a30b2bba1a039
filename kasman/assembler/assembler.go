/*
Package assembler crafts and signs kaspa transactions for the
commit/reveal flow.

Locking scripts (outputs) are stuffed first, then the inputs, then the
signature scripts. Inputs whose previous output is not owned by the
treasury key are left with an empty signature script; the reveal path
fills that input with the envelope's pay-to-script-hash unlock script
afterwards.
*/
package assembler

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	secp256k1 "github.com/kaspanet/go-secp256k1"
	"github.com/kaspanet/kaspad/domain/consensus/model/externalapi"
	"github.com/kaspanet/kaspad/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/kaspad/domain/consensus/utils/constants"
	"github.com/kaspanet/kaspad/domain/consensus/utils/subnetworks"
	"github.com/kaspanet/kaspad/domain/consensus/utils/transactionid"
	"github.com/kaspanet/kaspad/domain/consensus/utils/txscript"
	consensusutxo "github.com/kaspanet/kaspad/domain/consensus/utils/utxo"
	"github.com/kaspanet/kaspad/domain/dagconfig"
	"github.com/kaspanet/kaspad/util"

	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/envelope"
	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/utxo"
)

// Output is one payment of a transaction under assembly.
type Output struct {
	Address string
	Amount  uint64 // in sompi
}

// Assembler holds the treasury identity and the network it signs for.
type Assembler struct {
	Params    *dagconfig.Params
	Key       *secp256k1.SchnorrKeyPair // treasury private key
	PublicKey []byte                    // 32-byte x-only form of the key above
	Address   util.Address              // treasury p2pk address

	treasuryScript []byte // locking script of the treasury address
}

// NewAssembler builds an assembler from a hex-encoded schnorr private key.
func NewAssembler(privateKeyHex string, params *dagconfig.Params) (*Assembler, error) {
	keyBytes, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("bad private key hex: %v", err)
	}
	keyPair, err := secp256k1.DeserializeSchnorrPrivateKeyFromSlice(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %v", err)
	}
	publicKey, err := keyPair.SchnorrPublicKey()
	if err != nil {
		return nil, err
	}
	serialized, err := publicKey.Serialize()
	if err != nil {
		return nil, err
	}
	address, err := util.NewAddressPublicKey(serialized[:], params.Prefix)
	if err != nil {
		return nil, err
	}
	treasuryScript, err := txscript.PayToAddrScript(address)
	if err != nil {
		return nil, err
	}
	return &Assembler{
		Params:         params,
		Key:            keyPair,
		PublicKey:      serialized[:],
		Address:        address,
		treasuryScript: treasuryScript.Script,
	}, nil
}

// MakeTransferTx assembles and signs a transaction spending the priority
// entries (always consumed first) plus as many extra entries as needed to
// cover outputs + priorityFee. The remainder goes to changeAddress.
// Inputs not owned by the treasury key keep an empty signature script.
func (a *Assembler) MakeTransferTx(
	priorityEntries []*utxo.UTXOEntry,
	extraEntries []*utxo.UTXOEntry,
	outputs []Output,
	changeAddress string,
	priorityFee uint64,
) (*externalapi.DomainTransaction, error) {
	var outputSum uint64
	for _, output := range outputs {
		outputSum += output.Amount
	}

	selected, err := utxo.CollectEnough(priorityEntries, extraEntries, outputSum, priorityFee)
	if err != nil {
		return nil, err
	}

	txOutputs, err := a.craftOutputs(selected, outputs, changeAddress, priorityFee)
	if err != nil {
		return nil, err
	}

	txInputs, err := craftInputs(selected)
	if err != nil {
		return nil, err
	}

	tx := &externalapi.DomainTransaction{
		Version:      constants.MaxTransactionVersion,
		Inputs:       txInputs,
		Outputs:      txOutputs,
		LockTime:     0,
		SubnetworkID: subnetworks.SubnetworkIDNative,
	}

	if err := a.signTreasuryInputs(tx, selected); err != nil {
		return nil, err
	}
	return tx, nil
}

// FillRevealInput locates the input left with an empty signature script,
// signs it and fills it with the envelope's P2SH unlock script.
func (a *Assembler) FillRevealInput(tx *externalapi.DomainTransaction, env *envelope.Envelope) error {
	blankIndex := -1
	for i, input := range tx.Inputs {
		if len(input.SignatureScript) == 0 {
			blankIndex = i
			break
		}
	}
	if blankIndex == -1 {
		return errors.New("no blank input to fill with the envelope unlock script")
	}

	reusedValues := &consensushashing.SighashReusedValues{}
	signature, err := txscript.RawTxInSignature(tx, blankIndex, consensushashing.SigHashAll, a.Key, reusedValues)
	if err != nil {
		return fmt.Errorf("failed to sign reveal input: %v", err)
	}
	unlockScript, err := env.SignatureScript(signature)
	if err != nil {
		return err
	}
	tx.Inputs[blankIndex].SignatureScript = unlockScript
	return nil
}

// TransactionID returns the id of an assembled transaction.
func TransactionID(tx *externalapi.DomainTransaction) string {
	return consensushashing.TransactionID(tx).String()
}

// craftOutputs creates the locking scripts: the requested outputs first,
// then the change (if any). The change_amount is implied by:
// sum(utxo) = sum(outputs) + fee_amount + change_amount
func (a *Assembler) craftOutputs(
	selected []*utxo.UTXOEntry,
	outputs []Output,
	changeAddress string,
	priorityFee uint64,
) ([]*externalapi.DomainTransactionOutput, error) {
	inputSum := utxo.SumAmount(selected)
	var outputSum uint64
	for _, output := range outputs {
		outputSum += output.Amount
	}
	if inputSum < outputSum+priorityFee {
		return nil, fmt.Errorf("change_amount < 0, sum: %d, outputs: %d, fee: %d", inputSum, outputSum, priorityFee)
	}
	changeAmount := inputSum - outputSum - priorityFee

	var txOutputs []*externalapi.DomainTransactionOutput
	for _, output := range outputs {
		scriptPublicKey, err := a.payToAddressScript(output.Address)
		if err != nil {
			return nil, err
		}
		txOutputs = append(txOutputs, &externalapi.DomainTransactionOutput{
			Value:           output.Amount,
			ScriptPublicKey: scriptPublicKey,
		})
	}

	// if change == 0 no need to add this clause.
	if changeAmount > 0 {
		scriptPublicKey, err := a.payToAddressScript(changeAddress)
		if err != nil {
			return nil, err
		}
		txOutputs = append(txOutputs, &externalapi.DomainTransactionOutput{
			Value:           changeAmount,
			ScriptPublicKey: scriptPublicKey,
		})
	}
	return txOutputs, nil
}

func (a *Assembler) payToAddressScript(address string) (*externalapi.ScriptPublicKey, error) {
	decoded, err := util.DecodeAddress(address, a.Params.Prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to decode address %s: %v", address, err)
	}
	return txscript.PayToAddrScript(decoded)
}

func craftInputs(selected []*utxo.UTXOEntry) ([]*externalapi.DomainTransactionInput, error) {
	var inputs []*externalapi.DomainTransactionInput
	for _, entry := range selected {
		txID, err := transactionid.FromString(entry.Outpoint.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("bad outpoint transaction id %s: %v", entry.Outpoint.TransactionID, err)
		}
		inputs = append(inputs, &externalapi.DomainTransactionInput{
			PreviousOutpoint: externalapi.DomainOutpoint{
				TransactionID: *txID,
				Index:         entry.Outpoint.Index,
			},
			Sequence:   constants.MaxTxInSequenceNum,
			SigOpCount: 1,
			UTXOEntry: consensusutxo.NewUTXOEntry(
				entry.Amount,
				&externalapi.ScriptPublicKey{Script: entry.ScriptPublicKey, Version: entry.ScriptVersion},
				entry.IsCoinbase,
				entry.BlockDAAScore,
			),
		})
	}
	return inputs, nil
}

// signTreasuryInputs fills the signature script of every input the
// treasury key can unlock. Other inputs stay blank.
// Trick: both inputs and outputs shall be ready before signing,
// otherwise the signature won't pass the validation of the node.
func (a *Assembler) signTreasuryInputs(tx *externalapi.DomainTransaction, selected []*utxo.UTXOEntry) error {
	reusedValues := &consensushashing.SighashReusedValues{}
	for i, entry := range selected {
		if !bytes.Equal(entry.ScriptPublicKey, a.treasuryScript) {
			continue
		}
		signatureScript, err := txscript.SignatureScript(tx, i, consensushashing.SigHashAll, a.Key, reusedValues)
		if err != nil {
			return fmt.Errorf("failed to sign input %d: %v", i, err)
		}
		tx.Inputs[i].SignatureScript = signatureScript
	}
	return nil
}
