package tools

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/bigdata-coss/agent-mcp/internal/apierr"
)

// Decode copies the argument map into a typed struct through JSON. Absent keys
// keep their zero values; a value of the wrong JSON type is a request error.
func Decode(args map[string]any, v any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return apierr.Request("invalid arguments: %v", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return apierr.Request("invalid argument %q: expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
		}
		return apierr.Request("invalid arguments: %v", err)
	}
	return nil
}

// Millis converts a millisecond timeout argument. Zero or negative means unset.
func Millis(ms float64) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}
