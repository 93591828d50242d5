package bitcoin

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

const (
	messageMagic = "Bitcoin Signed Message:\n"

	compactSignatureLen = 65

	// Compact headers 31..34 mark a compressed key. Segwit-aware wallets shift
	// them by 4 (nested P2WPKH) or 8 (native P2WPKH); recovery is unchanged.
	compressedHeader = 31
	minSegwitHeader  = 35
	maxSegwitHeader  = 42
	recoveryCodes    = 4
)

// MessageVerifier checks signatures following the Bitcoin signed-message convention.
type MessageVerifier struct {
	params *chaincfg.Params
}

// NewMessageVerifier returns a verifier for addresses of network.
func NewMessageVerifier(network string) (*MessageVerifier, error) {
	params, err := ChainParams(network)
	if err != nil {
		return nil, err
	}
	return &MessageVerifier{params: params}, nil
}

// Verify reports whether signature (base64 compact form) over message was produced
// by the key controlling address. Malformed inputs are returned as errors.
func (v *MessageVerifier) Verify(message, address, signature string) (bool, error) {
	addr, err := btcutil.DecodeAddress(address, v.params)
	if err != nil {
		return false, fmt.Errorf("decode address: %w", err)
	}
	if !addr.IsForNet(v.params) {
		return false, fmt.Errorf("address %s is not for network %s", address, v.params.Name)
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != compactSignatureLen {
		return false, fmt.Errorf("signature length %d, want %d", len(sig), compactSignatureLen)
	}
	sig = normalizeHeader(sig)

	hash, err := MessageHash(message)
	if err != nil {
		return false, err
	}

	pubKey, compressed, err := ecdsa.RecoverCompact(sig, hash)
	if err != nil {
		return false, fmt.Errorf("recover public key: %w", err)
	}

	var serialized []byte
	if compressed {
		serialized = pubKey.SerializeCompressed()
	} else {
		serialized = pubKey.SerializeUncompressed()
	}
	keyHash := btcutil.Hash160(serialized)

	switch a := addr.(type) {
	case *btcutil.AddressPubKeyHash:
		return bytes.Equal(a.ScriptAddress(), keyHash), nil
	case *btcutil.AddressWitnessPubKeyHash:
		// segwit keys are always compressed
		return compressed && bytes.Equal(a.WitnessProgram(), keyHash), nil
	default:
		return false, fmt.Errorf("unsupported address type %T", addr)
	}
}

// MessageHash returns the double-SHA256 digest a wallet signs for message.
func MessageHash(message string) ([]byte, error) {
	var buf bytes.Buffer
	if err := wire.WriteVarString(&buf, 0, messageMagic); err != nil {
		return nil, fmt.Errorf("write message magic: %w", err)
	}
	if err := wire.WriteVarString(&buf, 0, message); err != nil {
		return nil, fmt.Errorf("write message: %w", err)
	}
	return chainhash.DoubleHashB(buf.Bytes()), nil
}

func normalizeHeader(sig []byte) []byte {
	header := sig[0]
	if header < minSegwitHeader || header > maxSegwitHeader {
		return sig
	}
	out := bytes.Clone(sig)
	out[0] = compressedHeader + (header-minSegwitHeader)%recoveryCodes
	return out
}
