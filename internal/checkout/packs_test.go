package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPack(t *testing.T) {
	pack, ok := GetPack("price_boost_10p")
	assert.True(t, ok)
	assert.Equal(t, 10, pack.Credits)

	_, ok = GetPack("price_unknown")
	assert.False(t, ok)
}

func TestCreditsFor(t *testing.T) {
	assert.Equal(t, 25, CreditsFor("price_boost_25p", 10))
	assert.Equal(t, 60, CreditsFor("price_boost_60p", 10))

	// Unknown prices fall back to the default so a paid checkout is never
	// credited zero
	assert.Equal(t, 10, CreditsFor("price_unknown", 10))
	assert.Equal(t, 10, CreditsFor("", 10))
}
