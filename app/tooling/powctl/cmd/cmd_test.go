package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardanlabs/miner/foundation/blockchain/chain"
	"github.com/ardanlabs/miner/foundation/blockchain/header"
	"github.com/ardanlabs/miner/foundation/blockchain/pow"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/pflag"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Flags live in package variables, put them back between runs.
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

// =============================================================================

func Test_Target(t *testing.T) {
	out, err := execute(t, "target", "0x1d00ffff")
	if err != nil {
		t.Fatalf("Should be able to decode bits: %s", err)
	}

	if !strings.Contains(out, "target: 0xffff0000000000000000000000000000000000000000000000000000") {
		t.Fatalf("Should print the target, got %s", out)
	}

	if !strings.Contains(out, "canonical: 1d00ffff") {
		t.Fatalf("Should print the canonical bits, got %s", out)
	}

	if _, err := execute(t, "target", "00000000"); err == nil {
		t.Fatalf("Should reject a zero target.")
	}
}

func Test_Bits(t *testing.T) {
	out, err := execute(t, "bits", "0x"+strings.Repeat("f", 64))
	if err != nil {
		t.Fatalf("Should be able to encode a target: %s", err)
	}

	if strings.TrimSpace(out) != "2100ffff" {
		t.Fatalf("Should encode the largest target, got %s", out)
	}
}

func Test_Verify(t *testing.T) {
	zero := chain.ZeroHash.String()

	out, err := execute(t, "verify", zero, "01010000")
	if err != nil {
		t.Fatalf("Should be able to verify: %s", err)
	}

	if !strings.Contains(out, "valid: true") {
		t.Fatalf("Should accept the zero hash at any target, got %s", out)
	}
}

func Test_Hash(t *testing.T) {
	b := header.New(1, chain.ZeroHash, pow.MaxTargetBits)

	out, err := execute(t, "hash", hexutil.Encode(b.Raw()))
	if err != nil {
		t.Fatalf("Should be able to hash a header: %s", err)
	}

	if !strings.Contains(out, "hash: "+b.Hash().String()) {
		t.Fatalf("Should print the header hash, got %s", out)
	}

	if _, err := execute(t, "hash", "0x00"); err == nil {
		t.Fatalf("Should reject a short header.")
	}
}

func Test_Mine(t *testing.T) {
	out, err := execute(t, "mine", "--bits", "2100ffff", "--workers", "2", "--max-extranonce", "4")
	if err != nil {
		t.Fatalf("Should be able to mine at the easiest target: %s", err)
	}

	for _, field := range []string{"hash: ", "nonce: ", "header: 0x"} {
		if !strings.Contains(out, field) {
			t.Fatalf("Should print %q, got %s", field, out)
		}
	}
}

func Test_GenerateMine(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "accounts", "miner1.ecdsa")

	out, err := execute(t, "generate", "--key", keyPath)
	if err != nil {
		t.Fatalf("Should be able to generate a key: %s", err)
	}

	if !strings.Contains(out, "address: 0x") {
		t.Fatalf("Should print the address, got %s", out)
	}

	if _, err := execute(t, "mine", "--bits", "2100ffff", "--key", keyPath); err != nil {
		t.Fatalf("Should be able to mine to the generated key: %s", err)
	}
}

func Test_BlocksMissing(t *testing.T) {
	if _, err := execute(t, "blocks", "--db", filepath.Join(t.TempDir(), "missing.db")); err == nil {
		t.Fatalf("Should fail when the database does not exist.")
	}
}
