//go:build linux
// +build linux

// File: core/concurrency/debugger_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux tracer detection through /proc.

package concurrency

import (
	"bufio"
	"bytes"
	"os"
	"strconv"
)

const procStatus = "/proc/self/status"

// DebuggerAttached reports whether a ptrace tracer (debugger, strace) is
// attached to the process.
func DebuggerAttached() bool {
	data, err := os.ReadFile(procStatus)
	if err != nil {
		return false
	}
	return tracerPid(data) > 0
}

// tracerPid extracts the TracerPid field from a /proc/<pid>/status dump.
func tracerPid(status []byte) int {
	sc := bufio.NewScanner(bytes.NewReader(status))
	for sc.Scan() {
		line := sc.Bytes()
		rest, ok := bytes.CutPrefix(line, []byte("TracerPid:"))
		if !ok {
			continue
		}
		pid, err := strconv.Atoi(string(bytes.TrimSpace(rest)))
		if err != nil {
			return 0
		}
		return pid
	}
	return 0
}
