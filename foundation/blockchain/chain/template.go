package chain

import (
	"fmt"

	"github.com/ardanlabs/miner/foundation/blockchain/pow"
	"github.com/holiman/uint256"
)

// BlockTemplate is the immutable input for one mining attempt. It is built
// by the process that talks to the node and is only read by the miner.
type BlockTemplate struct {
	Version       uint32        `json:"version"`
	PrevBlockHash Hash          `json:"previousblockhash"`
	Time          uint64        `json:"curtime"`
	Bits          uint32        `json:"bits" validate:"compactbits"`
	Height        uint32        `json:"height"`
	Transactions  []Transaction `json:"transactions"` // Excludes the coinbase.
	CoinbaseValue uint64        `json:"coinbasevalue"`

	// Optional commitments copied into the header as is. Zero when the
	// node doesn't provide them.
	WitnessRoot  Hash `json:"witnessroot"`
	TreeRoot     Hash `json:"treeroot"`
	ReservedRoot Hash `json:"reservedroot"`
}

// Validate checks the preconditions that must hold before a search starts.
func (bt BlockTemplate) Validate() error {
	if _, err := pow.BitsToTarget(bt.Bits); err != nil {
		return fmt.Errorf("template bits %08x: %w", bt.Bits, err)
	}

	for i, tx := range bt.Transactions {
		if tx.IsCoinbase() {
			return fmt.Errorf("template transaction %d is a coinbase", i)
		}
	}

	return nil
}

// Target returns the decoded difficulty target for the template.
func (bt BlockTemplate) Target() (*uint256.Int, error) {
	return pow.BitsToTarget(bt.Bits)
}

// TxHashes returns the hashes of the template transactions in order.
func (bt BlockTemplate) TxHashes() []Hash {
	hashes := make([]Hash, len(bt.Transactions))
	for i, tx := range bt.Transactions {
		hashes[i] = tx.Hash()
	}

	return hashes
}

// =============================================================================

// Solution is produced once per successful search and handed to the caller.
type Solution struct {
	Nonce      *uint256.Int `json:"nonce"`
	Extranonce uint32       `json:"extranonce"`
	Time       uint64       `json:"time"`
	CoinbaseTx Transaction  `json:"coinbase"`
}
