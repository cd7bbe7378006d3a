package platform

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID_ReturnsValidUUIDString(t *testing.T) {
	id := NewID()
	assert.NotEmpty(t, id)
	assert.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`, id)
}

func TestNewID_ReturnsUniqueValues(t *testing.T) {
	seen := make(map[string]bool, 100)
	for i := 0; i < 100; i++ {
		id := NewID()
		assert.False(t, seen[id], "duplicate ID generated: %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, 100)
}

func TestNewPassword_Format(t *testing.T) {
	for _, n := range []int{1, 16, 32} {
		pw := NewPassword(n)
		assert.Len(t, pw, n)
		assert.Regexp(t, `^[a-zA-Z0-9]+$`, pw)
	}
}

func TestNewPassword_Unique(t *testing.T) {
	seen := make(map[string]bool, 50)
	for i := 0; i < 50; i++ {
		pw := NewPassword(24)
		assert.False(t, seen[pw], "duplicate password generated")
		seen[pw] = true
	}
}

func TestPasswordFrom_DiscardsBiasedBytes(t *testing.T) {
	// 248..255 would wrap onto the first eight characters; they are skipped.
	src := bytes.NewReader([]byte{255, 248, 0, 61, 247, 62})

	pw, err := passwordFrom(src, 4)
	require.NoError(t, err)
	assert.Equal(t, "a9", pw[:2])
	assert.Equal(t, string(passwordAlphabet[247%62]), pw[2:3])
	assert.Equal(t, "a", pw[3:])
}

func TestPasswordFrom_ShortReader(t *testing.T) {
	_, err := passwordFrom(bytes.NewReader([]byte{250, 251}), 2)
	assert.Error(t, err)
}

func TestPasswordFrom_Uniform(t *testing.T) {
	// Every byte value once: the accepted ones cover each character exactly four times.
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	pw, err := passwordFrom(bytes.NewReader(all), 4*len(passwordAlphabet))
	require.NoError(t, err)

	counts := map[rune]int{}
	for _, c := range pw {
		counts[c]++
	}
	assert.Len(t, counts, len(passwordAlphabet))
	for c, n := range counts {
		assert.Equal(t, 4, n, "character %q", c)
	}
}
