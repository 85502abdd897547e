package errcode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

const extCRC Ext = "crc"

func TestOfAndExtOf(t *testing.T) {
	assert.Equal(t, OK, Of(nil))
	assert.Equal(t, NoExt, ExtOf(nil))
	assert.Equal(t, Busy, Of(Busy))
	assert.Equal(t, Error, Of(errors.New("plain")))

	e := New("ds18b20.read", extCRC, nil)
	wrapped := fmt.Errorf("cycle: %w", e)
	assert.Equal(t, Error, Of(wrapped))
	assert.Equal(t, extCRC, ExtOf(wrapped))
	assert.True(t, errors.Is(wrapped, extCRC))
	assert.True(t, errors.Is(wrapped, Error))
	assert.False(t, errors.Is(wrapped, Timeout))
}

func TestOfPrefersOuterCode(t *testing.T) {
	e := &E{C: InvalidParams, Op: "op", Err: Busy}
	assert.Equal(t, InvalidParams, Of(e))
	assert.True(t, errors.Is(e, Busy))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "cc1200.write: error/write_spi", New("cc1200.write", "write_spi", nil).Error())
	assert.Equal(t, "op: invalid_params: bad channel", Invalid("op", "bad channel").Error())
	assert.Equal(t, "error/timeout: boom", (&E{C: Error, X: "timeout", Err: errors.New("boom")}).Error())
}
