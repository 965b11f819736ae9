package utils

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBasicAuthMd5(t *testing.T) {
	h := BuildBasicAuthMd5(nil, nil)
	assert.Empty(t, h.Get(AuthHead))

	h = BuildBasicAuthMd5([]byte("admin"), []byte("secret"))
	got := h.Get(AuthHead)
	require.True(t, strings.HasPrefix(got, "Basic "))

	// Same credentials produce the same header.
	again := BuildBasicAuthMd5([]byte("admin"), []byte("secret"))
	assert.Equal(t, got, again.Get(AuthHead))
}

func TestRunnerCapturesStdout(t *testing.T) {
	r := NewRunner(5 * time.Second)
	out, err := r.Run(context.Background(), "sh", "-c", "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))
}

func TestRunnerFoldsStderrIntoError(t *testing.T) {
	r := NewRunner(5 * time.Second)
	_, err := r.Run(context.Background(), "sh", "-c", "echo broken >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestRunnerTimesOut(t *testing.T) {
	r := NewRunner(50 * time.Millisecond)
	_, err := r.Run(context.Background(), "sh", "-c", "sleep 5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}
