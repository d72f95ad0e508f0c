package colour

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromByte(t *testing.T) {
	for b := uint8(0); b <= 4; b++ {
		c, err := FromByte(b)
		require.NoError(t, err)
		assert.Equal(t, Colour(b), c)
	}

	for b := uint8(5); b < 8; b++ {
		_, err := FromByte(b)
		assert.Error(t, err)
	}
}

func TestAllWhite(t *testing.T) {
	assert.True(t, Colours{White, White, White, White, White}.AllWhite())
	assert.False(t, Colours{White, Red, White, White, White}.AllWhite())
}

// Every decoded 3-bit field must map to a valid Colour whenever the word's
// fields are all <= 4, and the encode/decode round trip must be the
// identity — this pins spec.md's Colours<->u16 invariant and the corrected
// (non-off-by-one) iteration order.
func TestPackRoundTrip(t *testing.T) {
	f := func(fields [5]uint8) bool {
		var word uint16
		for i := range fields {
			fields[i] = fields[i] % 5
			word |= uint16(fields[i]) << (12 - 3*i)
		}

		decoded := FromWord(word)
		for i, col := range decoded {
			if col != Colour(fields[i]) {
				return false
			}
		}

		return decoded.Pack() == word
	}

	require.NoError(t, quick.Check(f, nil))
}

func TestIterationOrder(t *testing.T) {
	// sensor 0 is the first element in range order, not skipped.
	c := Colours{Red, Green, Blue, Black, White}
	var seen []Colour
	for _, col := range c {
		seen = append(seen, col)
	}
	assert.Equal(t, []Colour{Red, Green, Blue, Black, White}, seen)
}
