package fallback

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeString(t *testing.T) {
	assert.Equal(t, "hi", SafeString("  hi  ", "fallback"))
	assert.Equal(t, "fallback", SafeString("", "fallback"))
	assert.Equal(t, "fallback", SafeString("   ", "fallback"))
	assert.Equal(t, "fallback", SafeString(nil, "fallback"))
	assert.Equal(t, "fallback", SafeString(42, "fallback"))
}

func TestSafeInt(t *testing.T) {
	assert.Equal(t, 3, SafeInt(float64(3), 9))
	assert.Equal(t, 9, SafeInt(float64(0), 9))
	assert.Equal(t, 9, SafeInt(-2, 9))
	assert.Equal(t, 7, SafeInt("7", 9))
	assert.Equal(t, 9, SafeInt("seven", 9))
	assert.Equal(t, 9, SafeInt(nil, 9))
	assert.Equal(t, 5, SafeInt(json.Number("5"), 9))
}

func TestSafeFloat(t *testing.T) {
	f, ok := SafeFloat(0.5)
	assert.True(t, ok)
	assert.Equal(t, 0.5, f)

	// Zero is a usable value, not a failure
	f, ok = SafeFloat(float64(0))
	assert.True(t, ok)
	assert.Equal(t, 0.0, f)

	f, ok = SafeFloat(3)
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)

	f, ok = SafeFloat("0.25")
	assert.True(t, ok)
	assert.Equal(t, 0.25, f)

	f, ok = SafeFloat(json.Number("0.75"))
	assert.True(t, ok)
	assert.Equal(t, 0.75, f)

	_, ok = SafeFloat("not-a-number")
	assert.False(t, ok)

	_, ok = SafeFloat(nil)
	assert.False(t, ok)
}

func TestSafeBool(t *testing.T) {
	assert.True(t, SafeBool(true, false))
	assert.True(t, SafeBool("true", false))
	assert.True(t, SafeBool("nope", true))
	assert.True(t, SafeBool(float64(1), false))
	assert.False(t, SafeBool(float64(0), true))
	assert.True(t, SafeBool(nil, true))
}

func TestClampSteps(t *testing.T) {
	assert.Equal(t, DefaultNumSteps, ClampSteps(nil))
	assert.Equal(t, 2, ClampSteps(2))
	assert.Equal(t, DefaultNumSteps, ClampSteps(0))
	assert.Equal(t, MaxNumSteps, ClampSteps(99))
	assert.Equal(t, 1, ClampSteps(float64(1)))
}

func TestClampTextureSize(t *testing.T) {
	assert.Equal(t, DefaultTextureSize, ClampTextureSize(nil))
	assert.Equal(t, MinTextureSize, ClampTextureSize(100))
	assert.Equal(t, MaxTextureSize, ClampTextureSize(4096))
	assert.Equal(t, 2048, ClampTextureSize(float64(2048)))
}

func TestClampSeed(t *testing.T) {
	assert.Equal(t, DefaultSeed, ClampSeed(nil))
	assert.Equal(t, MinSeed, ClampSeed(0))
	assert.Equal(t, MinSeed, ClampSeed(-3))
	assert.Equal(t, 42, ClampSeed(float64(42)))
}
