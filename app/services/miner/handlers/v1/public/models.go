package public

import (
	"github.com/ardanlabs/miner/business/sys/database"
	"github.com/ardanlabs/miner/foundation/blockchain/chain"
	"github.com/ardanlabs/miner/foundation/blockchain/miner"
)

type status struct {
	Mining      bool                `json:"mining"`
	Rounds      uint64              `json:"rounds"`
	Blocks      int                 `json:"blocks"`
	LatestBlock chain.Hash          `json:"latest_block"`
	Height      uint32              `json:"height"`
	Bits        string              `json:"bits"`
	Target      string              `json:"target"`
	Stats       miner.StatsSnapshot `json:"stats"`
}

type block struct {
	Hash       chain.Hash   `json:"hash"`
	Height     uint32       `json:"height"`
	PrevBlock  chain.Hash   `json:"prev_block"`
	MerkleRoot chain.Hash   `json:"merkle_root"`
	Time       uint64       `json:"time"`
	Bits       string       `json:"bits"`
	Nonce      string       `json:"nonce"`
	Extranonce uint32       `json:"extranonce"`
	Coinbase   chain.Hash   `json:"coinbase"`
	TxHashes   []chain.Hash `json:"tx_hashes"`
}

func toBlock(blockFS database.BlockFS) block {
	blk := blockFS.Block

	return block{
		Hash:       blockFS.Hash,
		Height:     blk.Height,
		PrevBlock:  blk.Header.PrevBlock,
		MerkleRoot: blk.Header.MerkleRoot,
		Time:       blk.Header.Time,
		Bits:       bitsString(blk.Header.Bits),
		Nonce:      blk.Header.Nonce.Hex(),
		Extranonce: blk.Extranonce,
		Coinbase:   blk.Coinbase.Hash(),
		TxHashes:   blk.TxHashes,
	}
}
