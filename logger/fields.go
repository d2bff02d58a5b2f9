package logger

import (
	"time"
)

// Standard field key constants for structured logging.
const (
	FieldComponent  = "component"
	FieldStage      = "stage"
	FieldStageID    = "stage_id"
	FieldOperator   = "operator"
	FieldDispatcher = "dispatcher"
	FieldOwner      = "owner"
	FieldScope      = "scope"
	FieldError      = "error"
	FieldDuration   = "duration_ms"
	FieldReason     = "reason"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Get("eventkit.observe").Debug("event dropped", logger.Fields("operator", "throttle"))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(operator string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldOperator: operator,
		FieldError:    err.Error(),
	}
}

// DurationFields creates fields for a timed unit of work.
func DurationFields(dispatcher string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldDispatcher: dispatcher,
		FieldDuration:   d.Milliseconds(),
	}
}
