package header

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func Test_Encoders(t *testing.T) {
	tt := []struct {
		name string
		got  []byte
		exp  []byte
	}{
		{"left zero", appendLeftEncode(nil, 0), []byte{0x01, 0x00}},
		{"left rate", appendLeftEncode(nil, 136), []byte{0x01, 0x88}},
		{"left two bytes", appendLeftEncode(nil, 256), []byte{0x02, 0x01, 0x00}},
		{"right zero", appendRightEncode(nil, 0), []byte{0x00, 0x01}},
		{"right 256 bits", appendRightEncode(nil, 256), []byte{0x01, 0x00, 0x02}},
		{"appends", appendLeftEncode([]byte{0xff}, 1), []byte{0xff, 0x01, 0x01}},
	}

	for _, tst := range tt {
		if !bytes.Equal(tst.got, tst.exp) {
			t.Logf("got: %x", tst.got)
			t.Logf("exp: %x", tst.exp)
			t.Fatalf("%s: Should encode correctly.", tst.name)
		}
	}

	b := appendBytepad(nil, []byte{0xaa, 0xbb}, kmacRate)
	if len(b) != kmacRate {
		t.Fatalf("Should pad to the rate, got %d bytes", len(b))
	}
	if !bytes.Equal(b[:6], []byte{0x01, 0x88, 0x01, 0x10, 0xaa, 0xbb}) {
		t.Fatalf("Should prefix the padded string with the width, got %x", b[:6])
	}
	for i, v := range b[6:] {
		if v != 0 {
			t.Fatalf("Should zero pad, got %x at %d", v, i+6)
		}
	}

	long := appendBytepad(nil, make([]byte, 200), kmacRate)
	if len(long) != 2*kmacRate {
		t.Fatalf("Should pad a long string to two blocks, got %d bytes", len(long))
	}
}

// Sample #4 from the NIST SP 800-185 KMAC examples.
func Test_KMAC256Sample(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(0x40 + i)
	}
	data := []byte{0x00, 0x01, 0x02, 0x03}
	custom := []byte("My Tagged Application")

	exp, _ := hex.DecodeString("20c570c31346f703c9ac36c61c03cb64c3970d0cfc787e9b79599d273a68d2f7" +
		"f69d4cc3de9d104a351689f27cf6f5951f0103f33f4f24871024d9c27773a8dd")

	out := make([]byte, 64)
	kmac256(out, key, data, custom)

	if !bytes.Equal(out, exp) {
		t.Logf("got: %x", out)
		t.Logf("exp: %x", exp)
		t.Fatalf("Should match the published KMAC256 output.")
	}
}

func Test_KMAC256Keyed(t *testing.T) {
	data := []byte("header data")

	a := make([]byte, 32)
	b := make([]byte, 32)
	kmac256(a, []byte{0x00}, data, nil)
	kmac256(b, []byte{0x01}, data, nil)

	if bytes.Equal(a, b) {
		t.Fatalf("Should produce a different output for a different key.")
	}

	c := make([]byte, 32)
	kmac256(c, []byte{0x00}, data, nil)
	if !bytes.Equal(a, c) {
		t.Fatalf("Should produce the same output for the same key.")
	}
}

func Test_KMAC256Reuse(t *testing.T) {
	k := newKMAC256(nil)

	nonces := [][]byte{make([]byte, 32), bytes.Repeat([]byte{0x01}, 32), make([]byte, 32)}
	data := []byte("header data")

	for i, nonce := range nonces {
		got := make([]byte, 32)
		k.sum(got, nonce, data)

		exp := make([]byte, 32)
		kmac256(exp, nonce, data, nil)

		if !bytes.Equal(got, exp) {
			t.Logf("got: %x", got)
			t.Logf("exp: %x", exp)
			t.Fatalf("[case:%d] Should not carry state between computations.", i)
		}
	}
}
