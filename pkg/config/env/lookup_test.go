package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	t.Setenv("DIGEST_TEST_STR", "")
	assert.Equal(t, "def", String("DIGEST_TEST_STR", "def"))

	t.Setenv("DIGEST_TEST_STR", "set")
	assert.Equal(t, "set", String("DIGEST_TEST_STR", "def"))
}

func TestInt(t *testing.T) {
	n, err := Int("DIGEST_TEST_INT_UNSET", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	t.Setenv("DIGEST_TEST_INT", "12")
	n, err = Int("DIGEST_TEST_INT", 7)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	t.Setenv("DIGEST_TEST_INT", "twelve")
	_, err = Int("DIGEST_TEST_INT", 7)
	assert.ErrorContains(t, err, "DIGEST_TEST_INT")
}

func TestDuration(t *testing.T) {
	t.Setenv("DIGEST_TEST_DUR", "90s")
	d, err := Duration("DIGEST_TEST_DUR", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	t.Setenv("DIGEST_TEST_DUR", "soon")
	_, err = Duration("DIGEST_TEST_DUR", time.Second)
	assert.Error(t, err)
}

func TestBool(t *testing.T) {
	t.Setenv("DIGEST_TEST_BOOL", "true")
	assert.True(t, Bool("DIGEST_TEST_BOOL", false))

	t.Setenv("DIGEST_TEST_BOOL", "nope")
	assert.True(t, Bool("DIGEST_TEST_BOOL", true))
}
