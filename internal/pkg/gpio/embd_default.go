//go:build (!arm && !arm64) || tinygo

package gpio

import (
	"errors"

	"go.uber.org/zap"
)

func NewEmbdPort(names PinNames, log *zap.Logger) (*PinPort, error) {
	return nil, errors.New("hardware not supported")
}
