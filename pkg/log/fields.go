package log

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// toFields converts alternating keys and values into zap fields. A zap.Field
// or a bare error may appear anywhere in the list and stands on its own.
// A trailing key without a value is kept as "arg#N".
func toFields(args ...any) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(args)/2+1)
	for i := 0; i < len(args); i++ {
		switch v := args[i].(type) {
		case zap.Field:
			fields = append(fields, v)
			continue
		case error:
			fields = append(fields, zap.Error(v))
			continue
		}

		if i == len(args)-1 {
			fields = append(fields, zap.Any(fmt.Sprintf("arg#%d", i), args[i]))
			break
		}

		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		fields = append(fields, valueField(key, args[i+1]))
		i++
	}
	return fields
}

// valueField picks the encoding for one value. Times and durations keep
// their native encoding even though they are Stringers; other Stringers,
// such as vehicle statuses and wire timestamps, log as their text form.
// Byte slices are wire payloads and log as text.
func valueField(key string, val any) zap.Field {
	switch v := val.(type) {
	case time.Time:
		return zap.Time(key, v)
	case time.Duration:
		return zap.Duration(key, v)
	case error:
		return zap.NamedError(key, v)
	case fmt.Stringer:
		return zap.Stringer(key, v)
	case []byte:
		return zap.ByteString(key, v)
	default:
		return zap.Any(key, v)
	}
}
