package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("MQ_TEST_STRING", "rust-lang/rust")
	t.Setenv("MQ_TEST_EMPTY", "")

	assert.Equal(t, "rust-lang/rust", GetEnv("MQ_TEST_STRING", "default"))
	assert.Equal(t, "default", GetEnv("MQ_TEST_EMPTY", "default"))
	assert.Equal(t, "default", GetEnv("MQ_TEST_UNSET_STRING", "default"))
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		value    string
		expected int
	}{
		{value: "42", expected: 42},
		{value: "-3", expected: -3},
		{value: "", expected: 7},
		{value: "forty-two", expected: 7},
		{value: "4.2", expected: 7},
	}

	for _, tt := range tests {
		t.Run("value "+tt.value, func(t *testing.T) {
			t.Setenv("MQ_TEST_INT", tt.value)
			assert.Equal(t, tt.expected, GetEnvInt("MQ_TEST_INT", 7))
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		value    string
		expected time.Duration
	}{
		{value: "30s", expected: 30 * time.Second},
		{value: "1h30m", expected: 90 * time.Minute},
		{value: "250ms", expected: 250 * time.Millisecond},
		{value: "", expected: time.Minute},
		{value: "30", expected: time.Minute},
		{value: "soon", expected: time.Minute},
	}

	for _, tt := range tests {
		t.Run("value "+tt.value, func(t *testing.T) {
			t.Setenv("MQ_TEST_DURATION", tt.value)
			assert.Equal(t, tt.expected, GetEnvDuration("MQ_TEST_DURATION", time.Minute))
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value        string
		defaultValue bool
		expected     bool
	}{
		{value: "true", defaultValue: false, expected: true},
		{value: "1", defaultValue: false, expected: true},
		{value: "false", defaultValue: true, expected: false},
		{value: "0", defaultValue: true, expected: false},
		{value: "yes", defaultValue: true, expected: true},
		{value: "yes", defaultValue: false, expected: false},
		{value: "", defaultValue: true, expected: true},
	}

	for _, tt := range tests {
		t.Run("value "+tt.value, func(t *testing.T) {
			t.Setenv("MQ_TEST_BOOL", tt.value)
			assert.Equal(t, tt.expected, GetEnvBool("MQ_TEST_BOOL", tt.defaultValue))
		})
	}
}

func TestGetEnvFloat(t *testing.T) {
	t.Setenv("MQ_TEST_FLOAT", "1.5")
	assert.InDelta(t, 1.5, GetEnvFloat("MQ_TEST_FLOAT", 2), 1e-9)

	t.Setenv("MQ_TEST_FLOAT", "double")
	assert.InDelta(t, 2.0, GetEnvFloat("MQ_TEST_FLOAT", 2), 1e-9)
}
