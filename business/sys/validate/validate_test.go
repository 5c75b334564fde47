package validate_test

import (
	"testing"

	"github.com/ardanlabs/miner/business/sys/validate"
	"github.com/ardanlabs/miner/foundation/blockchain/chain"
	"github.com/ardanlabs/miner/foundation/blockchain/pow"
)

func Test_CompactBits(t *testing.T) {
	tmpl := chain.BlockTemplate{Version: 1, Bits: pow.MaxTargetBits}
	if err := validate.Check(tmpl); err != nil {
		t.Fatalf("Should accept decodable bits: %s", err)
	}

	tests := []struct {
		name string
		bits uint32
	}{
		{"zero", 0x00000000},
		{"negative", 0x04923456},
		{"overflow", 0xff123456},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := chain.BlockTemplate{Version: 1, Bits: tt.bits}

			err := validate.Check(tmpl)
			if !validate.IsFieldErrors(err) {
				t.Fatalf("Should return field errors, got %v", err)
			}

			fields := validate.GetFieldErrors(err).Fields()
			if _, exists := fields["bits"]; !exists {
				t.Fatalf("Should report the bits field by its json name, got %v", fields)
			}
		})
	}
}

func Test_Required(t *testing.T) {
	v := struct {
		Address string `json:"address" validate:"required"`
	}{}

	err := validate.Check(v)
	if !validate.IsFieldErrors(err) {
		t.Fatalf("Should return field errors, got %v", err)
	}

	if msg := validate.GetFieldErrors(err).Fields()["address"]; msg != "address is a required field" {
		t.Fatalf("Should translate the message, got %q", msg)
	}
}
