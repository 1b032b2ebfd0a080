package logger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelLogger(t *testing.T) {
	out := make(chan []byte, 4)
	log := GetChannelLogger(out)

	log.Info("instruction sent", Transfer)

	var entry struct {
		Msg   string `json:"msg"`
		Level int    `json:"level"`
		Ts    int64  `json:"ts"`
	}
	data := <-out
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "instruction sent", entry.Msg)
	assert.Equal(t, TransferLvl, entry.Level)
	assert.NotZero(t, entry.Ts)
	assert.NotEqual(t, byte('\n'), data[len(data)-1])
}
