package xlog

import "go.uber.org/zap"

// ZapExporter delivers Events to a zap.SugaredLogger. This is the default
// production exporter, wired in cmd/compositor/main.go.
type ZapExporter struct {
	sugar *zap.SugaredLogger
}

// NewZapExporter builds an Exporter around a production zap logger writing
// to stderr. It matches the teacher's own choice of zap as its structured
// logging backend (golang.org/x/exp's go.mod requires go.uber.org/zap
// directly).
func NewZapExporter() (*ZapExporter, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &ZapExporter{sugar: logger.Sugar()}, nil
}

func (z *ZapExporter) Export(e Event) {
	fields := make([]interface{}, 0, len(e.Labels)*2)
	for _, l := range e.Labels {
		fields = append(fields, l.Key, l.Value)
	}
	switch e.Level {
	case Debug:
		z.sugar.Debugw(e.Message, fields...)
	case Warn:
		z.sugar.Warnw(e.Message, fields...)
	case Error:
		z.sugar.Errorw(e.Message, fields...)
	default:
		z.sugar.Infow(e.Message, fields...)
	}
}

// Sync flushes any buffered log entries. Call before process exit.
func (z *ZapExporter) Sync() error { return z.sugar.Sync() }
