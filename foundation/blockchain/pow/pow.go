// Package pow implements the compact difficulty encoding and the proof of
// work acceptance test. Both the miner and block validation call Verify so
// the numeric rules can't diverge between the two.
package pow

import (
	"encoding/binary"
	"errors"

	"github.com/holiman/uint256"
)

// Set of errors returned when decoding compact difficulty bits.
var (
	ErrZeroTarget     = errors.New("target is zero")
	ErrNegativeTarget = errors.New("target is negative")
	ErrTargetOverflow = errors.New("target overflows 256 bits")
)

const (
	// MaxTargetBits is the easiest target the compact form can express.
	MaxTargetBits uint32 = 0x2100ffff

	// MinTargetBits is the hardest non-zero target, a target of 1.
	MinTargetBits uint32 = 0x01010000
)

// compact form layout.
const (
	signBit      = 0x00800000
	mantissaMask = 0x007fffff
)

// BitsToTarget decodes the compact representation of a target. The high
// byte is a base 256 exponent and the low 23 bits are the mantissa. Bit 24
// is a sign bit that no valid target may set.
func BitsToTarget(bits uint32) (*uint256.Int, error) {
	exponent := uint(bits >> 24)
	mantissa := uint64(bits & mantissaMask)

	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
	}

	if mantissa != 0 && bits&signBit != 0 {
		return nil, ErrNegativeTarget
	}

	if mantissa != 0 && (exponent > 34 || (mantissa > 0xff && exponent > 33) || (mantissa > 0xffff && exponent > 32)) {
		return nil, ErrTargetOverflow
	}

	target := uint256.NewInt(mantissa)
	if exponent > 3 {
		target.Lsh(target, 8*(exponent-3))
	}

	if target.IsZero() {
		return nil, ErrZeroTarget
	}

	return target, nil
}

// TargetToBits encodes a target into its canonical compact representation.
func TargetToBits(target *uint256.Int) uint32 {
	size := uint((target.BitLen() + 7) / 8)

	var compact uint64
	switch {
	case size <= 3:
		compact = target.Uint64() << (8 * (3 - size))
	default:
		compact = new(uint256.Int).Rsh(target, 8*(size-3)).Uint64()
	}

	// The mantissa is signed, move a set high bit into the exponent.
	if compact&signBit != 0 {
		compact >>= 8
		size++
	}

	return uint32(compact) | uint32(size)<<24
}

// =============================================================================

// HashToInt interprets the hash as a little-endian 256-bit number.
func HashToInt(hash [32]byte) *uint256.Int {
	var z uint256.Int
	z[0] = binary.LittleEndian.Uint64(hash[0:8])
	z[1] = binary.LittleEndian.Uint64(hash[8:16])
	z[2] = binary.LittleEndian.Uint64(hash[16:24])
	z[3] = binary.LittleEndian.Uint64(hash[24:32])

	return &z
}

// Verify reports whether the hash satisfies the target encoded by bits.
// Bits that don't decode to a usable target never verify.
func Verify(hash [32]byte, bits uint32) bool {
	target, err := BitsToTarget(bits)
	if err != nil {
		return false
	}

	return VerifyTarget(hash, target)
}

// VerifyTarget reports whether the hash is less than or equal to the
// already decoded target. Used by the search loop to decode bits once.
func VerifyTarget(hash [32]byte, target *uint256.Int) bool {
	return !HashToInt(hash).Gt(target)
}
