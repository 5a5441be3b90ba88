package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Reference vectors for MurmurHash3 x86 32-bit with seed 0. Allocation
// parity with the platform's other client SDKs depends on these exact
// values.
func TestMurmurHash32(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input string
		want  uint32
	}{
		{"", 0x00000000},
		{"abc", 0xb3dd93fa},
		{"hello", 0x248bfa47},
		{"The quick brown fox jumps over the lazy dog", 0x2e4ff723},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, murmurHash32([]byte(tc.input)), "input %q", tc.input)
	}
}
