package cmd

import (
	"fmt"

	"github.com/ardanlabs/miner/foundation/blockchain/chain"
	"github.com/ardanlabs/miner/foundation/blockchain/header"
	"github.com/ardanlabs/miner/foundation/blockchain/pow"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
)

var targetCmd = &cobra.Command{
	Use:   "target <bits>",
	Short: "Decode compact bits into a target",
	Args:  cobra.ExactArgs(1),
	RunE:  targetRun,
}

var bitsCmd = &cobra.Command{
	Use:   "bits <target>",
	Short: "Encode a 0x prefixed target into compact bits",
	Args:  cobra.ExactArgs(1),
	RunE:  bitsRun,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <hash> <bits>",
	Short: "Check a 0x prefixed hash against compact bits",
	Args:  cobra.ExactArgs(2),
	RunE:  verifyRun,
}

var hashCmd = &cobra.Command{
	Use:   "hash <header>",
	Short: "Compute the proof of work hash of 0x prefixed header bytes",
	Args:  cobra.ExactArgs(1),
	RunE:  hashRun,
}

func init() {
	rootCmd.AddCommand(targetCmd)
	rootCmd.AddCommand(bitsCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(hashCmd)
}

func targetRun(cmd *cobra.Command, args []string) error {
	bits, err := parseBits(args[0])
	if err != nil {
		return err
	}

	target, err := pow.BitsToTarget(bits)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "target: %s\n", target.Hex())
	fmt.Fprintf(cmd.OutOrStdout(), "canonical: %08x\n", pow.TargetToBits(target))

	return nil
}

func bitsRun(cmd *cobra.Command, args []string) error {
	target, err := uint256.FromHex(args[0])
	if err != nil {
		return fmt.Errorf("invalid target %q: %w", args[0], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%08x\n", pow.TargetToBits(target))

	return nil
}

func verifyRun(cmd *cobra.Command, args []string) error {
	hash, err := chain.ToHash(args[0])
	if err != nil {
		return err
	}

	bits, err := parseBits(args[1])
	if err != nil {
		return err
	}

	if _, err := pow.BitsToTarget(bits); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "valid: %t\n", pow.Verify(hash, bits))

	return nil
}

func hashRun(cmd *cobra.Command, args []string) error {
	raw, err := hexutil.Decode(args[0])
	if err != nil {
		return fmt.Errorf("invalid header: %w", err)
	}

	b, err := header.FromSlice(raw)
	if err != nil {
		return err
	}

	hash := b.Hash()

	fmt.Fprintf(cmd.OutOrStdout(), "hash: %s\n", hash)
	fmt.Fprintf(cmd.OutOrStdout(), "valid: %t\n", pow.Verify(hash, b.Bits()))

	return nil
}
