package header_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/ardanlabs/miner/foundation/blockchain/chain"
	"github.com/ardanlabs/miner/foundation/blockchain/header"
	"github.com/ardanlabs/miner/foundation/blockchain/pow"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/blake2b"
)

func fill(v byte) chain.Hash {
	var h chain.Hash
	for i := range h {
		h[i] = v
	}
	return h
}

// diffRange returns the first and last index that differ, or -1, -1.
func diffRange(a, b []byte) (int, int) {
	first, last := -1, -1
	for i := range a {
		if a[i] != b[i] {
			if first == -1 {
				first = i
			}
			last = i
		}
	}
	return first, last
}

// =============================================================================

func Test_NewLayout(t *testing.T) {
	prev := fill(0xab)
	b := header.New(0x01020304, prev, 0x1d00ffff)

	raw := b.Raw()
	if len(raw) != header.Size {
		t.Fatalf("Should have %d bytes, got %d", header.Size, len(raw))
	}

	if !bytes.Equal(raw[0:4], []byte{0x04, 0x03, 0x02, 0x01}) {
		t.Fatalf("Should write the version little-endian, got %x", raw[0:4])
	}

	if !bytes.Equal(raw[4:36], prev[:]) {
		t.Fatalf("Should write the previous hash after the version.")
	}

	if !bytes.Equal(raw[172:176], []byte{0xff, 0xff, 0x00, 0x1d}) {
		t.Fatalf("Should write the bits little-endian, got %x", raw[172:176])
	}

	zero := make([]byte, header.Size)
	if !bytes.Equal(raw[36:172], zero[36:172]) {
		t.Fatalf("Should zero the roots and the time.")
	}
	if !bytes.Equal(raw[176:], zero[176:]) {
		t.Fatalf("Should zero the padding and the nonce.")
	}

	if b.Version() != 0x01020304 || b.PrevBlock() != prev || b.Bits() != 0x1d00ffff {
		t.Fatalf("Should read back the fixed fields.")
	}
}

func Test_FieldIsolation(t *testing.T) {
	tt := []struct {
		name  string
		first int
		last  int
		set   func(b *header.Bytes)
	}{
		{"merkle", 36, 67, func(b *header.Bytes) { b.SetMerkleRoot(fill(0x11)) }},
		{"witness", 68, 99, func(b *header.Bytes) { b.SetWitnessRoot(fill(0x22)) }},
		{"tree", 100, 131, func(b *header.Bytes) { b.SetTreeRoot(fill(0x33)) }},
		{"reserved", 132, 163, func(b *header.Bytes) { b.SetReservedRoot(fill(0x44)) }},
		{"time", 164, 171, func(b *header.Bytes) { b.SetTime(0x8877665544332211) }},
		{"nonce", 208, 239, func(b *header.Bytes) { b.SetNonce(new(uint256.Int).SetAllOne()) }},
	}

	for _, tst := range tt {
		t.Run(tst.name, func(t *testing.T) {
			b := header.New(7, fill(0xcd), pow.MaxTargetBits)
			before := b.Raw()

			tst.set(b)
			after := b.Raw()

			first, last := diffRange(before, after)
			if first != tst.first || last != tst.last {
				t.Logf("got: [%d, %d]", first, last)
				t.Logf("exp: [%d, %d]", tst.first, tst.last)
				t.Fatalf("Should only change the field's own bytes.")
			}
		})
	}
}

func Test_NonceLittleEndian(t *testing.T) {
	b := header.New(0, chain.ZeroHash, pow.MaxTargetBits)

	nonce := new(uint256.Int).Lsh(uint256.NewInt(0x0102), 192)
	nonce.AddUint64(nonce, 0x03)
	b.SetNonce(nonce)

	raw := b.Raw()
	if raw[header.NonceOffset] != 0x03 {
		t.Fatalf("Should store the least significant byte first, got %x", raw[header.NonceOffset])
	}
	if raw[header.NonceOffset+24] != 0x02 || raw[header.NonceOffset+25] != 0x01 {
		t.Fatalf("Should store the high word little-endian, got %x", raw[header.NonceOffset+24:header.NonceOffset+26])
	}

	if !b.Nonce().Eq(nonce) {
		t.Fatalf("Should read back the nonce, got %s", b.Nonce().Hex())
	}
}

func Test_TimeLittleEndian(t *testing.T) {
	b := header.New(0, chain.ZeroHash, pow.MaxTargetBits)
	b.SetTime(1700000000)

	raw := b.Raw()
	if got := binary.LittleEndian.Uint64(raw[164:172]); got != 1700000000 {
		t.Fatalf("Should store the time little-endian, got %d", got)
	}
	if b.Time() != 1700000000 {
		t.Fatalf("Should read back the time, got %d", b.Time())
	}
}

func Test_HashDeterministic(t *testing.T) {
	b := header.New(1, fill(0x01), pow.MaxTargetBits)
	b.SetMerkleRoot(fill(0x02))
	b.SetTime(12345)
	b.SetNonce(uint256.NewInt(42))

	before := b.Raw()
	h1 := b.Hash()
	h2 := b.Hash()

	if h1 != h2 {
		t.Fatalf("Should get back the same hash twice.")
	}

	if !bytes.Equal(before, b.Raw()) {
		t.Fatalf("Should not change the buffer when hashing.")
	}

	c := header.New(1, fill(0x01), pow.MaxTargetBits)
	c.SetMerkleRoot(fill(0x02))
	c.SetTime(12345)
	c.SetNonce(uint256.NewInt(42))

	if c.Hash() != h1 {
		t.Fatalf("Should get the same hash from an identical buffer.")
	}
}

func Test_HashKeyedByNonce(t *testing.T) {
	b := header.New(1, fill(0x01), pow.MaxTargetBits)

	b.SetNonce(uint256.NewInt(0))
	h0 := b.Hash()

	b.SetNonce(uint256.NewInt(1))
	h1 := b.Hash()

	if h0 == h1 {
		t.Fatalf("Should get a different hash for a different nonce.")
	}

	raw := b.Raw()
	plain := blake2b.Sum256(raw[:header.NonceOffset])
	if chain.Hash(plain) == h1 {
		t.Fatalf("Should not be an unkeyed hash of the data.")
	}

	if header.MiningHash(raw[:header.NonceOffset], raw[header.NonceOffset:]) != h1 {
		t.Fatalf("Should hash the pre-nonce region keyed by the nonce region.")
	}
}

func Test_HashAllocations(t *testing.T) {
	b := header.New(1, fill(0x01), pow.MaxTargetBits)
	b.SetMerkleRoot(fill(0x02))

	nonce := new(uint256.Int)
	allocs := testing.AllocsPerRun(100, func() {
		nonce.AddUint64(nonce, 1)
		b.SetNonce(nonce)
		b.Hash()
	})

	// The keyed BLAKE2b digest is the only value built per attempt.
	if allocs > 1 {
		t.Fatalf("Should allocate at most once per nonce attempt, got %v", allocs)
	}

	raw := b.Raw()
	if header.MiningHash(raw[:header.NonceOffset], raw[header.NonceOffset:]) != b.Hash() {
		t.Fatalf("Should get the same hash from the reused state.")
	}
}

func Test_FromSlice(t *testing.T) {
	if _, err := header.FromSlice(make([]byte, header.Size-1)); !errors.Is(err, header.ErrInvalidLength) {
		t.Fatalf("Should reject a short header, got %v", err)
	}

	b := header.New(3, fill(0x09), 0x207fffff)
	b.SetNonce(uint256.NewInt(99))

	c, err := header.FromSlice(b.Raw())
	if err != nil {
		t.Fatalf("Should be able to load a full header: %s", err)
	}

	if c.Hash() != b.Hash() {
		t.Fatalf("Should hash the same after a copy.")
	}
}

func Test_BlockHeaderRoundTrip(t *testing.T) {
	bh := header.BlockHeader{
		Version:      2,
		PrevBlock:    fill(0x01),
		MerkleRoot:   fill(0x02),
		WitnessRoot:  fill(0x03),
		TreeRoot:     fill(0x04),
		ReservedRoot: fill(0x05),
		Time:         1234,
		Bits:         0x207fffff,
		Nonce:        uint256.NewInt(77),
	}

	got := header.Decode(bh.Bytes())
	if got.Version != bh.Version || got.PrevBlock != bh.PrevBlock || got.MerkleRoot != bh.MerkleRoot ||
		got.WitnessRoot != bh.WitnessRoot || got.TreeRoot != bh.TreeRoot || got.ReservedRoot != bh.ReservedRoot ||
		got.Time != bh.Time || got.Bits != bh.Bits || !got.Nonce.Eq(bh.Nonce) {
		t.Logf("got: %+v", got)
		t.Logf("exp: %+v", bh)
		t.Fatalf("Should decode the same header that was encoded.")
	}
}

func Test_ValidatePOW(t *testing.T) {
	bh := header.BlockHeader{
		Bits:  pow.MinTargetBits,
		Nonce: uint256.NewInt(1),
	}

	if err := bh.ValidatePOW(); !errors.Is(err, header.ErrPOWNotSolved) {
		t.Fatalf("Should reject a header that misses a target of one, got %v", err)
	}

	bh.Bits = 0
	if err := bh.ValidatePOW(); !errors.Is(err, pow.ErrZeroTarget) {
		t.Fatalf("Should reject undecodable bits, got %v", err)
	}
}
