package retry

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

const messageSignatureHeader = "Bitcoin Signed Message:\n"

// SignatureVerifier validates that a message was signed by the holder of the
// claimed Bitcoin address.
type SignatureVerifier interface {
	Verify(address, message, signatureB64 string) error
}

// MessageVerifier verifies standard Bitcoin signed messages: compact
// recoverable ECDSA over the double-SHA256 of the framed message, matched
// against the P2PKH, P2WPKH or P2SH-P2WPKH encodings of the recovered key.
type MessageVerifier struct {
	netParams *chaincfg.Params
}

var _ SignatureVerifier = (*MessageVerifier)(nil)

func NewMessageVerifier(netParams *chaincfg.Params) *MessageVerifier {
	return &MessageVerifier{netParams: netParams}
}

func (v *MessageVerifier) Verify(address, message, signatureB64 string) error {
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("failed to decode signature: %w", err)
	}

	var buf bytes.Buffer
	if err := wire.WriteVarString(&buf, 0, messageSignatureHeader); err != nil {
		return fmt.Errorf("failed to frame message header: %w", err)
	}
	if err := wire.WriteVarString(&buf, 0, message); err != nil {
		return fmt.Errorf("failed to frame message: %w", err)
	}
	msgHash := chainhash.DoubleHashB(buf.Bytes())

	pubKey, compressed, err := ecdsa.RecoverCompact(sig, msgHash)
	if err != nil {
		return fmt.Errorf("failed to recover public key: %w", err)
	}

	candidates, err := v.addressesForKey(pubKey.SerializeCompressed(), pubKey.SerializeUncompressed(), compressed)
	if err != nil {
		return err
	}
	for _, candidate := range candidates {
		if candidate == address {
			return nil
		}
	}
	return fmt.Errorf("recovered key does not match address %s", address)
}

func (v *MessageVerifier) addressesForKey(compressedPk, uncompressedPk []byte, compressed bool) ([]string, error) {
	serialized := uncompressedPk
	if compressed {
		serialized = compressedPk
	}
	pkHash := btcutil.Hash160(serialized)

	p2pkh, err := btcutil.NewAddressPubKeyHash(pkHash, v.netParams)
	if err != nil {
		return nil, fmt.Errorf("failed to derive p2pkh address: %w", err)
	}
	candidates := []string{p2pkh.EncodeAddress()}

	// segwit encodings are only defined over the compressed key
	if compressed {
		p2wpkh, err := btcutil.NewAddressWitnessPubKeyHash(pkHash, v.netParams)
		if err != nil {
			return nil, fmt.Errorf("failed to derive p2wpkh address: %w", err)
		}
		candidates = append(candidates, p2wpkh.EncodeAddress())

		witnessScript, err := txscript.PayToAddrScript(p2wpkh)
		if err != nil {
			return nil, fmt.Errorf("failed to build witness script: %w", err)
		}
		p2sh, err := btcutil.NewAddressScriptHash(witnessScript, v.netParams)
		if err != nil {
			return nil, fmt.Errorf("failed to derive p2sh-p2wpkh address: %w", err)
		}
		candidates = append(candidates, p2sh.EncodeAddress())
	}
	return candidates, nil
}
