// Package zapconsole renders leadsync log entries as single console lines:
// time, level, caller and message followed by the correlation fields that
// tie a line to a webhook delivery.
package zapconsole

import (
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const _hex = "0123456789abcdef"

// DefaultKeys are the fields printed on the console, in order. Everything
// else only reaches the JSON file log.
var DefaultKeys = []string{"request_id", "log_id", "call_id", "id", "service", "error"}

var _bufferPool = buffer.NewPool()

type ConsoleEncoder struct {
	*zapcore.MapObjectEncoder
	*zapcore.EncoderConfig

	keys []string
}

func NewConsoleEncoder(encConfig *zapcore.EncoderConfig, keys ...string) *ConsoleEncoder {
	if len(keys) == 0 {
		keys = DefaultKeys
	}

	return &ConsoleEncoder{
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		EncoderConfig:    encConfig,
		keys:             keys,
	}
}

func (enc *ConsoleEncoder) Clone() zapcore.Encoder {
	clone := NewConsoleEncoder(enc.EncoderConfig, enc.keys...)
	for key, value := range enc.Fields {
		clone.Fields[key] = value
	}

	return clone
}

func (enc *ConsoleEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	line := _bufferPool.Get()

	arr := getSliceEncoder()
	defer putSliceEncoder(arr)

	enc.encodeFixedFields(arr, &ent)

	for _, elem := range arr.elems {
		enc.appendSeparator(line)
		appendEscaped(line, elem)
	}

	values := enc.merge(fields)

	for _, key := range enc.keys {
		value, ok := values[key]
		if !ok {
			continue
		}

		enc.appendSeparator(line)
		line.AppendString(key)
		line.AppendByte('=')
		appendEscaped(line, fmt.Sprint(value))
	}

	if ent.Stack != "" && enc.StacktraceKey != "" {
		line.AppendByte('\n')
		line.AppendString(ent.Stack)
	}

	if enc.LineEnding != "" {
		line.AppendString(enc.LineEnding)
	} else {
		line.AppendString(zapcore.DefaultLineEnding)
	}

	return line, nil
}

func (enc *ConsoleEncoder) encodeFixedFields(arr *sliceArrayEncoder, ent *zapcore.Entry) {
	if enc.TimeKey != "" && enc.EncodeTime != nil && !ent.Time.IsZero() {
		enc.EncodeTime(ent.Time, arr)
	}

	if enc.LevelKey != "" && enc.EncodeLevel != nil {
		enc.EncodeLevel(ent.Level, arr)
	}

	if ent.LoggerName != "" && enc.NameKey != "" {
		arr.AppendString(ent.LoggerName)
	}

	if ent.Caller.Defined {
		if enc.CallerKey != "" && enc.EncodeCaller != nil {
			enc.EncodeCaller(ent.Caller, arr)
		}

		if enc.FunctionKey != "" {
			arr.AppendString(ent.Caller.Function)
		}
	}

	if enc.MessageKey != "" {
		arr.AppendString(ent.Message)
	}
}

// merge layers the entry fields over the context collected through With.
func (enc *ConsoleEncoder) merge(fields []zapcore.Field) map[string]any {
	values := zapcore.NewMapObjectEncoder()
	for key, value := range enc.Fields {
		values.Fields[key] = value
	}

	for i := range fields {
		fields[i].AddTo(values)
	}

	return values.Fields
}

func (enc *ConsoleEncoder) appendSeparator(line *buffer.Buffer) {
	if line.Len() == 0 {
		return
	}

	if enc.ConsoleSeparator == "" {
		line.AppendByte('\t')
		return
	}

	line.AppendString(enc.ConsoleSeparator)
}

// appendEscaped keeps a value on one line: control bytes are escaped and
// invalid UTF-8 is replaced with �.
func appendEscaped(buf *buffer.Buffer, s string) {
	last := 0

	for i := 0; i < len(s); {
		if s[i] >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r != utf8.RuneError || size != 1 {
				i += size
				continue
			}

			buf.AppendString(s[last:i])
			buf.AppendString(`�`)

			i++
			last = i

			continue
		}

		if s[i] >= 0x20 {
			i++
			continue
		}

		buf.AppendString(s[last:i])

		switch s[i] {
		case '\n':
			buf.AppendString(`\n`)
		case '\r':
			buf.AppendString(`\r`)
		case '\t':
			buf.AppendString(`\t`)
		default:
			buf.AppendString(`\u00`)
			buf.AppendByte(_hex[s[i]>>4])
			buf.AppendByte(_hex[s[i]&0xF])
		}

		i++
		last = i
	}

	buf.AppendString(s[last:])
}
