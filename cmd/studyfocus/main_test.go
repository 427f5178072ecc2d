package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDaemonLogPath(t *testing.T) {
	assert.Equal(t, "/tmp/studyfocus.log", daemonLogPath("/tmp/studyfocus.pid"))
	assert.Equal(t, "/run/user/1000/sf.log", daemonLogPath("/run/user/1000/sf"))
	assert.Equal(t, filepath.Join(os.TempDir(), "studyfocus.log"), daemonLogPath(""))
}
