package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Messages receives every encoded log entry produced by loggers from GetLogger.
// Somebody has to drain it, otherwise logging blocks once the buffer is full.
var Messages = make(chan []byte, 128)

const (
	ErrorLvl    = 0
	WarningLvl  = 1
	InfoLvl     = 2
	TransferLvl = 3 // one entry per instruction/data byte
	PinsLvl     = 4 // one entry per port flush

	DebugLvl = 378
)

var (
	Error    = zap.Int("level", ErrorLvl)
	Warning  = zap.Int("level", WarningLvl)
	Info     = zap.Int("level", InfoLvl)
	Transfer = zap.Int("level", TransferLvl)
	Pins     = zap.Int("level", PinsLvl)

	Debug = zap.Int("level", DebugLvl)
)

type chanWriter struct {
	sync.Mutex
	out chan<- []byte
}

func (w *chanWriter) Write(p []byte) (n int, err error) {
	w.Lock()
	var newSlice = make([]byte, len(p))
	copy(newSlice, p)
	w.out <- newSlice
	w.Unlock()
	return len(p), nil
}

func (w *chanWriter) Sync() error {
	return nil
}

func newLogger(out chan<- []byte) *zap.Logger {
	writer := &chanWriter{out: out}
	cfg := zap.NewProductionEncoderConfig()
	cfg.SkipLineEnding = true
	cfg.EncodeTime = zapcore.EpochNanosTimeEncoder
	cfg.LevelKey = ""
	encoder := zapcore.NewJSONEncoder(cfg)

	return zap.New(
		zapcore.NewCore(encoder, zapcore.Lock(writer), zap.DebugLevel),
		zap.AddCaller(),
	)
}

// GetLogger returns a logger feeding the Messages channel.
func GetLogger() *zap.Logger {
	return newLogger(Messages)
}

// GetChannelLogger returns a logger feeding the given channel instead of Messages.
func GetChannelLogger(out chan<- []byte) *zap.Logger {
	return newLogger(out)
}
