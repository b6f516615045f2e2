//go:build linux

package concurrency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracerPid(t *testing.T) {
	status := []byte("Name:\tprimbench\nState:\tR (running)\nTgid:\t4242\nTracerPid:\t1337\nUid:\t0\t0\t0\t0\n")
	assert.Equal(t, 1337, tracerPid(status))

	assert.Equal(t, 0, tracerPid([]byte("Name:\tx\nTracerPid:\t0\n")))
	assert.Equal(t, 0, tracerPid([]byte("Name:\tx\n")))
	assert.Equal(t, 0, tracerPid([]byte("TracerPid:\tgarbage\n")))
}
