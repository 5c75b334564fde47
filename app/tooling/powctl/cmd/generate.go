package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var generateKeyPath string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new miner key",
	Args:  cobra.NoArgs,
	RunE:  generateRun,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVarP(&generateKeyPath, "key", "k", "zblock/accounts/miner1.ecdsa", "Path to write the private key.")
}

func generateRun(cmd *cobra.Command, args []string) error {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(generateKeyPath), 0755); err != nil {
		return err
	}

	if err := crypto.SaveECDSA(generateKeyPath, privateKey); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "address: %s\n", crypto.PubkeyToAddress(privateKey.PublicKey).Hex())

	return nil
}
