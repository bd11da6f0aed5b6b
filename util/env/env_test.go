package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetOrDefault(t *testing.T) {
	t.Setenv("CPYREPL_TEST_VALUE", "")
	assert.Equal(t, "def", GetOrDefault("CPYREPL_TEST_VALUE", "def"))

	t.Setenv("CPYREPL_TEST_VALUE", "set")
	assert.Equal(t, "set", GetOrDefault("CPYREPL_TEST_VALUE", "def"))
}

func TestSecondsOrDefault(t *testing.T) {
	t.Setenv("CPYREPL_TEST_DELAY", "0.25")
	assert.Equal(t, 250*time.Millisecond, SecondsOrDefault("CPYREPL_TEST_DELAY", time.Second))

	t.Setenv("CPYREPL_TEST_DELAY", "soon")
	assert.Equal(t, time.Second, SecondsOrDefault("CPYREPL_TEST_DELAY", time.Second))

	t.Setenv("CPYREPL_TEST_DELAY", "-1")
	assert.Equal(t, time.Second, SecondsOrDefault("CPYREPL_TEST_DELAY", time.Second))
}

func TestIntOrDefault(t *testing.T) {
	t.Setenv("CPYREPL_TEST_INT", "3")
	assert.Equal(t, 3, IntOrDefault("CPYREPL_TEST_INT", 1))

	t.Setenv("CPYREPL_TEST_INT", "x")
	assert.Equal(t, 1, IntOrDefault("CPYREPL_TEST_INT", 1))
}
