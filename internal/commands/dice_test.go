package commands

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDice(t *testing.T) {
	tests := []struct {
		in      string
		want    Dice
		wantErr bool
	}{
		{in: "2d6", want: Dice{Count: 2, Faces: 6}},
		{in: "1D20", want: Dice{Count: 1, Faces: 20}},
		{in: "100d1000000", want: Dice{Count: 100, Faces: 1000000}},
		{in: "0d6", wantErr: true},
		{in: "2d0", wantErr: true},
		{in: "-1d6", wantErr: true},
		{in: "101d6", wantErr: true},
		{in: "2d1000001", wantErr: true},
		{in: "d6", wantErr: true},
		{in: "2d", wantErr: true},
		{in: "2x6", wantErr: true},
		{in: "2d6d6", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDice(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDice)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoll_TwoDSixBounds(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 7))
	dice := Dice{Count: 2, Faces: 6}
	seen := make(map[int]bool)

	for i := 0; i < 10000; i++ {
		results, total := dice.Roll(r)
		require.Len(t, results, 2)
		sum := 0
		for _, v := range results {
			require.GreaterOrEqual(t, v, 1)
			require.LessOrEqual(t, v, 6)
			seen[v] = true
			sum += v
		}
		require.Equal(t, sum, total)
		require.GreaterOrEqual(t, total, 2)
		require.LessOrEqual(t, total, 12)
	}
	assert.Len(t, seen, 6)
}

func TestParseMuteDuration(t *testing.T) {
	def := 5 * time.Minute
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"10m", 10 * time.Minute},
		{"2h", 2 * time.Hour},
		{"", def},
		{"0s", def},
		{"10", def},
		{"1d", def},
		{"abc", def},
		{"-5m", def},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMuteDuration(tt.in, def))
		})
	}
}

func TestFormatMuteDuration(t *testing.T) {
	assert.Equal(t, "5m", FormatMuteDuration(5*time.Minute))
	assert.Equal(t, "2h", FormatMuteDuration(2*time.Hour))
	assert.Equal(t, "90s", FormatMuteDuration(90*time.Second))
	assert.Equal(t, "2s", FormatMuteDuration(1500*time.Millisecond))
}
