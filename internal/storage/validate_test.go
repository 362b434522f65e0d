package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTokenAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{"valid lowercase", "0x6982508145454ce325ddbe47a25d4ec3d2311933", false},
		{"valid checksummed", "0x6982508145454Ce325dDbE47a25d4ec3d2311933", false},
		{"missing prefix", "6982508145454ce325ddbe47a25d4ec3d2311933", true},
		{"too short", "0x698250", true},
		{"not hex", "0x698250814545zzz325ddbe47a25d4ec3d2311933", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTokenAddress(tt.address)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t,
		"0x6982508145454ce325ddbe47a25d4ec3d2311933",
		NormalizeAddress("0x6982508145454Ce325dDbE47a25d4ec3d2311933"))
	assert.Equal(t, "", NormalizeAddress(""))
}
