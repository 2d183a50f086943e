package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ImageInfo describes an image for structured logs.
type ImageInfo struct {
	Width    int
	Height   int
	Channels int
	Type     string // e.g. "CV_8UC4"
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (i ImageInfo) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("width", i.Width)
	enc.AddInt("height", i.Height)
	enc.AddInt("channels", i.Channels)
	if i.Type != "" {
		enc.AddString("type", i.Type)
	}
	return nil
}

// ImageField logs info under key.
//
// Example:
//
//	logger.Info("decoded", logging.ImageField("input", logging.ImageInfo{Width: 640, Height: 480, Channels: 4}))
func ImageField(key string, info ImageInfo) zap.Field {
	return zap.Object(key, info)
}

// TimingFields returns the start time and elapsed duration of an operation.
func TimingFields(start, end time.Time) []zap.Field {
	return []zap.Field{
		zap.Time("start_time", start),
		zap.Duration("duration", end.Sub(start)),
	}
}
