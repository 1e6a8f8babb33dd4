package envutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetEnvAsBool(t *testing.T) {
	require.True(t, GetEnvAsBool("ENV_TEST_BOOL_UNSET", true, nil))
	require.False(t, GetEnvAsBool("ENV_TEST_BOOL_UNSET", false, nil))

	cases := map[string]bool{
		"1":     true,
		"true":  true,
		"YES":   true,
		"on":    true,
		"0":     false,
		"false": false,
		"No":    false,
		"off":   false,
	}
	for val, want := range cases {
		t.Setenv("ENV_TEST_BOOL", val)
		require.Equal(t, want, GetEnvAsBool("ENV_TEST_BOOL", !want, nil), "value %q", val)
	}

	// Garbage falls back to the default.
	t.Setenv("ENV_TEST_BOOL", "maybe")
	require.True(t, GetEnvAsBool("ENV_TEST_BOOL", true, nil))
	require.False(t, GetEnvAsBool("ENV_TEST_BOOL", false, nil))
}

func TestGetEnvAsInt(t *testing.T) {
	require.Equal(t, 4, GetEnvAsInt("ENV_TEST_INT_UNSET", 4, nil))

	t.Setenv("ENV_TEST_INT", "17")
	require.Equal(t, 17, GetEnvAsInt("ENV_TEST_INT", 4, nil))

	t.Setenv("ENV_TEST_INT", "seventeen")
	require.Equal(t, 4, GetEnvAsInt("ENV_TEST_INT", 4, nil))
}
