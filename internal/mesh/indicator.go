// internal/mesh/indicator.go
package mesh

import (
	"os"

	"go.uber.org/zap"
)

// LEDIndicator drives a sysfs LED brightness file.
// Writes are best-effort: a broken LED must never take the node down.
type LEDIndicator struct {
	path string
	log  *zap.Logger
}

func NewLEDIndicator(path string, log *zap.Logger) *LEDIndicator {
	if log == nil {
		log = zap.NewNop()
	}
	return &LEDIndicator{path: path, log: log}
}

func (l *LEDIndicator) Set(on bool) {
	v := []byte("0")
	if on {
		v = []byte("1")
	}
	if err := os.WriteFile(l.path, v, 0o644); err != nil {
		l.log.Warn("indicator write failed", zap.String("path", l.path), zap.Error(err))
	}
}

// LogIndicator is the bench indicator: connectivity shows up in the
// log stream instead of on a pin.
type LogIndicator struct {
	log *zap.Logger
}

func NewLogIndicator(log *zap.Logger) *LogIndicator {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogIndicator{log: log}
}

func (l *LogIndicator) Set(on bool) {
	l.log.Debug("connectivity indicator", zap.Bool("on", on))
}
