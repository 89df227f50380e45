package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    time.Duration
		expectError bool
	}{
		{name: "go duration", input: "45s", expected: 45 * time.Second},
		{name: "compound go duration", input: "1m30s", expected: 90 * time.Second},
		{name: "iso 8601 seconds", input: "PT30S", expected: 30 * time.Second},
		{name: "iso 8601 hours and minutes", input: "PT1H15M", expected: 75 * time.Minute},
		{name: "whitespace trimmed", input: " 2s ", expected: 2 * time.Second},
		{name: "empty", input: "", expectError: true},
		{name: "garbage", input: "soon", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseDuration(tt.input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, parsed)
		})
	}
}

func TestFormatDurationRemaining(t *testing.T) {
	tests := []struct {
		input    time.Duration
		expected string
	}{
		{input: 0, expected: "less than a second"},
		{input: time.Second, expected: "1 second"},
		{input: 20 * time.Minute, expected: "20 minutes"},
		{input: time.Hour + 2*time.Minute + 3*time.Second, expected: "1 hour, 2 minutes, 3 seconds"},
		{input: 49 * time.Hour, expected: "2 days, 1 hour"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDurationRemaining(tt.input))
		})
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "*****", MaskSecret("short"))
	assert.Equal(t, "eyJh********9xYz", MaskSecret("eyJhbGciOiJIUzI1NiJ9.payload.sig9xYz"))
}

func TestConvertInterfaceToInterface(t *testing.T) {
	type record struct {
		Name  string  `json:"name"`
		Value *string `json:"value"`
	}

	var out []any
	require.NoError(t, ConvertInterfaceToInterface([]record{{Name: "Department"}}, &out))

	assert.Equal(t, []any{map[string]any{"name": "Department", "value": nil}}, out)
}

func TestWithInterrupt_Cleanup(t *testing.T) {
	ctx, cleanup := WithInterrupt(context.Background())
	assert.NoError(t, ctx.Err())

	cleanup()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestUserAgent(t *testing.T) {
	assert.Contains(t, UserAgent(), "sgscan/")
}
