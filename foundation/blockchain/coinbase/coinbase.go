// Package coinbase provides coinbase transaction builders for the miner.
// Each builder pays the template's coinbase value to a different style of
// locking script and lets the miner rewrite the extranonce in place.
package coinbase

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ardanlabs/miner/foundation/blockchain/chain"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrFinished is returned when a builder is used after Finish.
var ErrFinished = errors.New("coinbase builder already finished")

// Script opcodes used by the builders.
const (
	op0           = 0x00
	op1           = 0x51
	opDup         = 0x76
	opEqual       = 0x87
	opEqualVerify = 0x88
	opHash160     = 0xa9
	opCheckSig    = 0xac
	opPushData1   = 0x4c
)

// Builder maintains a coinbase transaction whose input script is the
// block height followed by the current extranonce.
type Builder struct {
	tx       chain.Transaction
	prefix   []byte
	finished bool
}

// New constructs a builder paying value to an arbitrary locking script.
func New(height uint32, value uint64, lockingScript []byte) *Builder {
	prefix := heightScript(height)

	return &Builder{
		tx:     chain.NewCoinbase(append([]byte(nil), prefix...), value, lockingScript),
		prefix: prefix,
	}
}

// P2PKH constructs a builder paying to a public key hash.
func P2PKH(height uint32, pubKeyHash [20]byte, value uint64) *Builder {
	script := make([]byte, 0, 25)
	script = append(script, opDup, opHash160, 20)
	script = append(script, pubKeyHash[:]...)
	script = append(script, opEqualVerify, opCheckSig)

	return New(height, value, script)
}

// P2SH constructs a builder paying to a script hash.
func P2SH(height uint32, scriptHash [20]byte, value uint64) *Builder {
	script := make([]byte, 0, 23)
	script = append(script, opHash160, 20)
	script = append(script, scriptHash[:]...)
	script = append(script, opEqual)

	return New(height, value, script)
}

// P2PK constructs a builder paying to a serialized public key.
func P2PK(height uint32, pubKey []byte, value uint64) *Builder {
	script := pushData(nil, pubKey)
	script = append(script, opCheckSig)

	return New(height, value, script)
}

// Witness constructs a builder paying to a witness program.
func Witness(height uint32, version byte, program []byte, value uint64) (*Builder, error) {
	if version > 16 {
		return nil, fmt.Errorf("invalid witness version %d", version)
	}

	if len(program) < 2 || len(program) > 40 {
		return nil, fmt.Errorf("invalid witness program length %d", len(program))
	}

	versionOp := byte(op0)
	if version > 0 {
		versionOp = op1 + version - 1
	}

	script := []byte{versionOp}
	script = pushData(script, program)

	return New(height, value, script), nil
}

// FromECDSA constructs a P2PKH builder for the miner's key. The key hash
// is the 20 byte account address derived from the public key.
func FromECDSA(height uint32, pub ecdsa.PublicKey, value uint64) *Builder {
	return P2PKH(height, crypto.PubkeyToAddress(pub), value)
}

// =============================================================================

// SetExtranonce replaces the extranonce that follows the height in the
// coinbase input script.
func (b *Builder) SetExtranonce(extranonce []byte) {
	if b.finished {
		return
	}

	script := b.tx.Inputs[0].Script[:len(b.prefix)]
	b.tx.Inputs[0].Script = pushData(script, extranonce)
}

// Hash returns the current hash of the coinbase transaction.
func (b *Builder) Hash() (chain.Hash, error) {
	if b.finished {
		return chain.Hash{}, ErrFinished
	}

	return b.tx.Hash(), nil
}

// Finish returns the finalized coinbase transaction. It can be called once.
func (b *Builder) Finish() (chain.Transaction, error) {
	if b.finished {
		return chain.Transaction{}, ErrFinished
	}
	b.finished = true

	return b.tx.Clone(), nil
}

// =============================================================================

// heightScript pushes the block height as a minimally encoded number.
func heightScript(height uint32) []byte {
	if height == 0 {
		return []byte{op0}
	}

	var num []byte
	for h := height; h > 0; h >>= 8 {
		num = append(num, byte(h))
	}

	// Keep the number positive when the high bit is set.
	if num[len(num)-1]&0x80 != 0 {
		num = append(num, 0x00)
	}

	return pushData(nil, num)
}

// pushData appends a data push of b to script.
func pushData(script []byte, b []byte) []byte {
	switch {
	case len(b) < opPushData1:
		script = append(script, byte(len(b)))
	default:
		script = append(script, opPushData1, byte(len(b)))
	}

	return append(script, b...)
}
