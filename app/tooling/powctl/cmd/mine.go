package cmd

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/ardanlabs/miner/foundation/blockchain/chain"
	"github.com/ardanlabs/miner/foundation/blockchain/coinbase"
	"github.com/ardanlabs/miner/foundation/blockchain/merkle"
	"github.com/ardanlabs/miner/foundation/blockchain/miner"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	mineBits          string
	minePrev          string
	mineVersion       uint32
	mineHeight        uint32
	mineValue         uint64
	mineMaxExtranonce uint32
	mineWorkers       int
	mineKeyPath       string
	mineTimeout       time.Duration
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Search for a solution to a single template",
	Args:  cobra.NoArgs,
	RunE:  mineRun,
}

func init() {
	rootCmd.AddCommand(mineCmd)

	f := mineCmd.Flags()
	f.StringVarP(&mineBits, "bits", "b", "2000ffff", "Compact difficulty bits in hex.")
	f.StringVar(&minePrev, "prev", "", "0x prefixed previous block hash.")
	f.Uint32Var(&mineVersion, "version", 1, "Header version.")
	f.Uint32Var(&mineHeight, "height", 0, "Block height committed in the coinbase.")
	f.Uint64Var(&mineValue, "value", 5_000_000_000, "Coinbase value.")
	f.Uint32Var(&mineMaxExtranonce, "max-extranonce", 1<<16, "Number of extranonce values to try.")
	f.IntVarP(&mineWorkers, "workers", "w", runtime.GOMAXPROCS(0), "Number of concurrent searches.")
	f.StringVarP(&mineKeyPath, "key", "k", "", "Path to the private key the coinbase pays to.")
	f.DurationVar(&mineTimeout, "timeout", 0, "Give up after this long. Zero waits forever.")
}

func mineRun(cmd *cobra.Command, args []string) error {
	b, err := parseBits(mineBits)
	if err != nil {
		return err
	}

	var prevBlock chain.Hash
	if minePrev != "" {
		if prevBlock, err = chain.ToHash(minePrev); err != nil {
			return err
		}
	}

	var pub *ecdsa.PublicKey
	if mineKeyPath != "" {
		privateKey, err := crypto.LoadECDSA(mineKeyPath)
		if err != nil {
			return fmt.Errorf("loading key: %w", err)
		}
		pub = &privateKey.PublicKey
	}

	tmpl := chain.BlockTemplate{
		Version:       mineVersion,
		PrevBlockHash: prevBlock,
		Time:          uint64(time.Now().Unix()),
		Bits:          b,
		Height:        mineHeight,
		CoinbaseValue: mineValue,
	}

	newBuilder := func() miner.CoinbaseBuilder {
		if pub != nil {
			return coinbase.FromECDSA(tmpl.Height, *pub, tmpl.CoinbaseValue)
		}
		return coinbase.P2PKH(tmpl.Height, [20]byte{}, tmpl.CoinbaseValue)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if mineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, mineTimeout)
		defer cancel()
	}

	var stats miner.Stats
	start := time.Now()

	sol, err := miner.FindSolutionParallel(ctx, tmpl, newBuilder, mineMaxExtranonce, mineWorkers, miner.WithStats(&stats))
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("no solution within %v after %d hashes", mineTimeout, stats.Hashes.Load())
	case err != nil:
		return err
	case sol == nil:
		return fmt.Errorf("search space exhausted after %d hashes", stats.Hashes.Load())
	}

	bh, err := miner.SolvedHeader(tmpl, *sol, merkle.NewRootBuilder(nil))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "hash: %s\n", bh.Hash())
	fmt.Fprintf(out, "nonce: %s\n", sol.Nonce.Hex())
	fmt.Fprintf(out, "extranonce: %d\n", sol.Extranonce)
	fmt.Fprintf(out, "merkle: %s\n", bh.MerkleRoot)
	fmt.Fprintf(out, "header: %s\n", hexutil.Encode(bh.Bytes().Raw()))
	fmt.Fprintf(out, "hashes: %d in %v\n", stats.Hashes.Load(), elapsed.Round(time.Millisecond))

	return nil
}
