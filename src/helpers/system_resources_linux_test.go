//go:build linux

package helpers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMemTotal(t *testing.T) {
	meminfo := "MemTotal:       16318504 kB\nMemFree:         1234567 kB\n"
	assert.Equal(t, 15936, parseMemTotalMB(strings.NewReader(meminfo)))
	assert.Zero(t, parseMemTotalMB(strings.NewReader("MemFree: 1 kB\n")))
}
