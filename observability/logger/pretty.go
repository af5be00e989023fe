package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// prettyEncoder wraps zap's JSON encoder and re-renders each entry as a colored header
// line followed by indented fields.
type prettyEncoder struct {
	zapcore.Encoder
}

// Clone keeps derived loggers on the pretty encoder.
func (e *prettyEncoder) Clone() zapcore.Encoder {
	return &prettyEncoder{Encoder: e.Encoder.Clone()}
}

func newPrettyLogger(cfg *zap.Config) *zap.Logger {
	enc := &prettyEncoder{Encoder: zapcore.NewJSONEncoder(cfg.EncoderConfig)}
	core := zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), cfg.Level)
	return zap.New(core, zap.ErrorOutput(zapcore.AddSync(os.Stderr)))
}

// EncodeEntry renders the entry through the JSON encoder, then reformats the payload.
func (e *prettyEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf, err := e.Encoder.EncodeEntry(entry, fields)
	if err != nil {
		return nil, err
	}

	raw := bytes.TrimSpace(append([]byte(nil), buf.Bytes()...))
	buf.Reset()

	var payload map[string]any
	if json.Unmarshal(raw, &payload) != nil {
		// not an object; write it untouched
		buf.AppendString(string(raw))
		buf.AppendByte('\n')
		return buf, nil
	}

	buf.AppendString(header(entry))
	buf.AppendByte('\n')

	fieldsOut := fieldLines(payload)
	if fieldsOut != "" {
		buf.AppendString(fieldsOut)
		buf.AppendByte('\n')
	}

	return buf, nil
}

func header(entry zapcore.Entry) string {
	ts := entry.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString(color.New(color.Faint).Sprint("[" + ts.Format(time.DateTime) + "]"))
	b.WriteByte(' ')
	b.WriteString(levelColor(entry.Level).Sprint(entry.Level.CapitalString()))
	if entry.LoggerName != "" {
		b.WriteByte(' ')
		b.WriteString(color.New(color.FgBlue).Sprint(entry.LoggerName))
	}
	if entry.Message != "" {
		b.WriteByte(' ')
		b.WriteString(entry.Message)
	}
	return b.String()
}

func fieldLines(payload map[string]any) string {
	for _, k := range []string{timeKey, levelKey, messageKey, nameKey} {
		delete(payload, k)
	}
	if len(payload) == 0 {
		return ""
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	keyColor := color.New(color.FgCyan)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		val, err := json.MarshalIndent(payload[k], "  ", "  ")
		if err != nil {
			continue
		}
		lines = append(lines, "  "+keyColor.Sprint(k)+": "+string(val))
	}
	return strings.Join(lines, "\n")
}

func levelColor(level zapcore.Level) *color.Color {
	switch level {
	case zapcore.DebugLevel:
		return color.New(color.FgCyan)
	case zapcore.InfoLevel:
		return color.New(color.FgGreen)
	case zapcore.WarnLevel:
		return color.New(color.FgYellow)
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return color.New(color.FgRed, color.Bold)
	case zapcore.InvalidLevel:
		return color.New(color.FgMagenta)
	default:
		return color.New(color.Reset)
	}
}
