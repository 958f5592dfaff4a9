package fallback

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Generation parameter bounds, mirrored by every entry surface.
const (
	MinNumSteps        = 1
	MaxNumSteps        = 4
	DefaultNumSteps    = 4
	MinTextureSize     = 512
	MaxTextureSize     = 2048
	DefaultTextureSize = 1024
	MinSeed            = 1
	DefaultSeed        = 1
)

// SafeString returns a trimmed string or the provided fallback.
func SafeString(value interface{}, fallback string) string {
	if s, ok := value.(string); ok {
		s = strings.TrimSpace(s)
		if s != "" {
			return s
		}
	}
	return fallback
}

// SafeInt converts common number shapes into int with a fallback.
func SafeInt(value interface{}, fallback int) int {
	switch v := value.(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case float32:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	case int64:
		if v > 0 {
			return int(v)
		}
	case json.Number:
		if n, err := strconv.Atoi(v.String()); err == nil && n > 0 {
			return n
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// SafeFloat converts common number shapes into float64. The second return
// reports whether the value was usable; zero is a valid result.
func SafeFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, true
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// SafeBool converts loose boolean shapes with a fallback.
func SafeBool(value interface{}, fallback bool) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	case float64:
		return v != 0
	case int:
		return v != 0
	}
	return fallback
}

// ClampSteps bounds diffusion steps to the supported range.
func ClampSteps(value interface{}) int {
	n := SafeInt(value, DefaultNumSteps)
	if n < MinNumSteps {
		n = MinNumSteps
	}
	if n > MaxNumSteps {
		n = MaxNumSteps
	}
	return n
}

// ClampTextureSize bounds the texture size to the supported range.
func ClampTextureSize(value interface{}) int {
	n := SafeInt(value, DefaultTextureSize)
	if n < MinTextureSize {
		n = MinTextureSize
	}
	if n > MaxTextureSize {
		n = MaxTextureSize
	}
	return n
}

// ClampSeed keeps the seed positive.
func ClampSeed(value interface{}) int {
	n := SafeInt(value, DefaultSeed)
	if n < MinSeed {
		n = MinSeed
	}
	return n
}
