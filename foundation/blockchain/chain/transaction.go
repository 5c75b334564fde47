package chain

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/crypto/blake2b"
)

// CoinbaseIndex is the outpoint index used by the coinbase input.
const CoinbaseIndex = math.MaxUint32

// Outpoint references an output of a previous transaction.
type Outpoint struct {
	Hash  Hash   `json:"hash"`
	Index uint32 `json:"index"`
}

// Input spends a previous output. For the coinbase the Script field carries
// the height and the miner's extranonce.
type Input struct {
	Prevout  Outpoint `json:"prevout"`
	Sequence uint32   `json:"sequence"`
	Script   []byte   `json:"script"`
	Witness  [][]byte `json:"witness,omitempty"`
}

// Output assigns value to a locking script.
type Output struct {
	Value  uint64 `json:"value"`
	Script []byte `json:"script"`
}

// Transaction is the unit of value transfer inside a block.
type Transaction struct {
	Version  uint32   `json:"version"`
	Inputs   []Input  `json:"inputs"`
	Outputs  []Output `json:"outputs"`
	LockTime uint32   `json:"locktime"`
}

// NewCoinbase constructs a coinbase transaction paying value to the
// specified locking script. The input script starts with the provided bytes.
func NewCoinbase(inputScript []byte, value uint64, lockingScript []byte) Transaction {
	return Transaction{
		Version: 1,
		Inputs: []Input{
			{
				Prevout:  Outpoint{Hash: ZeroHash, Index: CoinbaseIndex},
				Sequence: math.MaxUint32,
				Script:   inputScript,
			},
		},
		Outputs: []Output{
			{
				Value:  value,
				Script: lockingScript,
			},
		},
	}
}

// IsCoinbase reports whether the transaction has the coinbase shape.
func (tx Transaction) IsCoinbase() bool {
	if len(tx.Inputs) != 1 {
		return false
	}

	prev := tx.Inputs[0].Prevout
	return prev.Hash.IsZero() && prev.Index == CoinbaseIndex
}

// Hash returns the BLAKE2b-256 digest of the witness free encoding.
func (tx Transaction) Hash() Hash {
	return blake2b.Sum256(tx.Encode())
}

// Encode serializes the transaction without witness data. All numbers are
// little-endian and variable length fields are prefixed with a compact size.
func (tx Transaction) Encode() []byte {
	b := make([]byte, 0, tx.size())

	b = binary.LittleEndian.AppendUint32(b, tx.Version)

	b = appendCompactSize(b, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		b = append(b, in.Prevout.Hash[:]...)
		b = binary.LittleEndian.AppendUint32(b, in.Prevout.Index)
		b = appendCompactSize(b, uint64(len(in.Script)))
		b = append(b, in.Script...)
		b = binary.LittleEndian.AppendUint32(b, in.Sequence)
	}

	b = appendCompactSize(b, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		b = binary.LittleEndian.AppendUint64(b, out.Value)
		b = appendCompactSize(b, uint64(len(out.Script)))
		b = append(b, out.Script...)
	}

	b = binary.LittleEndian.AppendUint32(b, tx.LockTime)

	return b
}

// Clone returns a deep copy so the caller can't mutate shared slices.
func (tx Transaction) Clone() Transaction {
	c := Transaction{
		Version:  tx.Version,
		LockTime: tx.LockTime,
		Inputs:   make([]Input, len(tx.Inputs)),
		Outputs:  make([]Output, len(tx.Outputs)),
	}

	for i, in := range tx.Inputs {
		c.Inputs[i] = Input{
			Prevout:  in.Prevout,
			Sequence: in.Sequence,
			Script:   append([]byte(nil), in.Script...),
		}
		for _, w := range in.Witness {
			c.Inputs[i].Witness = append(c.Inputs[i].Witness, append([]byte(nil), w...))
		}
	}

	for i, out := range tx.Outputs {
		c.Outputs[i] = Output{
			Value:  out.Value,
			Script: append([]byte(nil), out.Script...),
		}
	}

	return c
}

// String implements the fmt.Stringer interface for logging.
func (tx Transaction) String() string {
	return fmt.Sprintf("%s:%d:%d", tx.Hash(), len(tx.Inputs), len(tx.Outputs))
}

// =============================================================================

// size returns the exact encoded size to avoid growing the buffer.
func (tx Transaction) size() int {
	n := 4 + compactSizeLen(uint64(len(tx.Inputs))) + compactSizeLen(uint64(len(tx.Outputs))) + 4

	for _, in := range tx.Inputs {
		n += HashSize + 4 + compactSizeLen(uint64(len(in.Script))) + len(in.Script) + 4
	}

	for _, out := range tx.Outputs {
		n += 8 + compactSizeLen(uint64(len(out.Script))) + len(out.Script)
	}

	return n
}

// appendCompactSize appends the bitcoin style variable length integer.
func appendCompactSize(b []byte, v uint64) []byte {
	switch {
	case v < 0xfd:
		return append(b, byte(v))
	case v <= math.MaxUint16:
		b = append(b, 0xfd)
		return binary.LittleEndian.AppendUint16(b, uint16(v))
	case v <= math.MaxUint32:
		b = append(b, 0xfe)
		return binary.LittleEndian.AppendUint32(b, uint32(v))
	default:
		b = append(b, 0xff)
		return binary.LittleEndian.AppendUint64(b, v)
	}
}

func compactSizeLen(v uint64) int {
	switch {
	case v < 0xfd:
		return 1
	case v <= math.MaxUint16:
		return 3
	case v <= math.MaxUint32:
		return 5
	default:
		return 9
	}
}
