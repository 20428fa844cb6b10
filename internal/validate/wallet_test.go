package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{
			name:  "valid lowercase address",
			input: "0x1234567890abcdef1234567890abcdef12345678",
			want:  "0x1234567890abcdef1234567890abcdef12345678",
		},
		{
			name:  "mixed case is normalized",
			input: "0x1234567890ABCDEF1234567890abcdef12345678",
			want:  "0x1234567890abcdef1234567890abcdef12345678",
		},
		{
			name:  "surrounding whitespace is trimmed",
			input: "  0x1234567890abcdef1234567890abcdef12345678\n",
			want:  "0x1234567890abcdef1234567890abcdef12345678",
		},
		{
			name:    "empty address",
			input:   "",
			wantErr: ErrWalletRequired,
		},
		{
			name:    "whitespace only",
			input:   "   ",
			wantErr: ErrWalletRequired,
		},
		{
			name:    "missing 0x prefix",
			input:   "1234567890abcdef1234567890abcdef12345678",
			wantErr: ErrWalletPrefix,
		},
		{
			name:    "too short",
			input:   "0x1234",
			wantErr: ErrWalletLength,
		},
		{
			name:    "too long",
			input:   "0x1234567890abcdef1234567890abcdef1234567890",
			wantErr: ErrWalletLength,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WalletAddress(tt.input)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
