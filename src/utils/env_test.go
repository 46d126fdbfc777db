package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnv(t *testing.T) {
	t.Run("set", func(t *testing.T) {
		t.Setenv("TRADEPANEL_TEST_VAR", "value")

		val, err := GetEnv("TRADEPANEL_TEST_VAR")
		require.Nil(t, err)
		assert.Equal(t, "value", val)
	})

	t.Run("unset returns an error", func(t *testing.T) {
		_, err := GetEnv("TRADEPANEL_TEST_VAR_MISSING")
		assert.NotNil(t, err)
	})

	t.Run("empty returns an error", func(t *testing.T) {
		t.Setenv("TRADEPANEL_TEST_VAR_EMPTY", "")

		_, err := GetEnv("TRADEPANEL_TEST_VAR_EMPTY")
		assert.NotNil(t, err)
	})
}
