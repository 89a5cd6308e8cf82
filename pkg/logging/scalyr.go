package logging

import (
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

var bufferPool = buffer.NewPool()

// ScalyrEncoder writes one flat JSON object per entry, the layout Scalyr parses
// without a custom parser. Context fields added through With are kept in a map
// so that they survive Clone and show up on every entry.
type ScalyrEncoder struct {
	*zapcore.MapObjectEncoder
	config zapcore.EncoderConfig
}

// NewScalyrEncoder creates a new Scalyr-compatible encoder
func NewScalyrEncoder(config zapcore.EncoderConfig) zapcore.Encoder {
	return &ScalyrEncoder{
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		config:           config,
	}
}

// Clone creates a copy of the encoder
func (e *ScalyrEncoder) Clone() zapcore.Encoder {
	clone := zapcore.NewMapObjectEncoder()
	for k, v := range e.Fields {
		clone.Fields[k] = v
	}
	return &ScalyrEncoder{MapObjectEncoder: clone, config: e.config}
}

// EncodeEntry encodes a log entry in Scalyr-compatible format
func (e *ScalyrEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	obj := zapcore.NewMapObjectEncoder()
	for k, v := range e.Fields {
		obj.Fields[k] = v
	}
	for _, f := range fields {
		f.AddTo(obj)
	}

	out := obj.Fields
	for k, v := range out {
		switch val := v.(type) {
		case time.Duration:
			out[k] = val.String()
		case time.Time:
			out[k] = val.UTC().Format(time.RFC3339Nano)
		}
	}

	out["timestamp"] = entry.Time.UTC().Format(time.RFC3339Nano)
	out["level"] = entry.Level.String()
	out["message"] = entry.Message
	if entry.LoggerName != "" {
		out["logger"] = entry.LoggerName
	}
	if entry.Caller.Defined {
		out["file"] = entry.Caller.TrimmedPath()
		out["line"] = entry.Caller.Line
		out["function"] = entry.Caller.Function
	}
	if entry.Stack != "" {
		out["stack"] = entry.Stack
	}

	data, err := json.MarshalWithOption(out, json.DisableHTMLEscape())
	if err != nil {
		return nil, err
	}

	buf := bufferPool.Get()
	buf.AppendBytes(data)
	buf.AppendByte('\n')
	return buf, nil
}
