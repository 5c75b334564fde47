package cmd

import (
	"fmt"
	"os"

	"github.com/ardanlabs/miner/business/sys/database"
	"github.com/spf13/cobra"
)

var (
	blocksDBPath string
	blocksLimit  int
)

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "List and verify the blocks recorded by the miner",
	Args:  cobra.NoArgs,
	RunE:  blocksRun,
}

func init() {
	rootCmd.AddCommand(blocksCmd)
	blocksCmd.Flags().StringVar(&blocksDBPath, "db", "zblock/blocks.db", "Path to the block database.")
	blocksCmd.Flags().IntVarP(&blocksLimit, "limit", "n", 0, "Only show the most recent blocks. Zero shows all.")
}

func blocksRun(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(blocksDBPath); err != nil {
		return err
	}

	db, err := database.New(blocksDBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, blockFS := range db.Blocks(blocksLimit) {
		blk := blockFS.Block
		fmt.Fprintf(cmd.OutOrStdout(), "%d %s prev[%s] bits[%08x] nonce[%s]\n",
			blk.Height, blockFS.Hash, blk.Header.PrevBlock, blk.Header.Bits, blk.Header.Nonce.Hex())
	}

	return nil
}
