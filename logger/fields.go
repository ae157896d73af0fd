package logger

// Standard field keys used across the delivery subsystem.
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldConnID    = "conn_id"
	FieldSinkID    = "sink_id"
	FieldStrategy  = "strategy"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
)

// Fields builds a field map from alternating key-value pairs.
//
//	logger.Info("done", logger.Fields("sink_id", id, "delivered", 3))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields merges an error into a copy of fields.
func ErrorFields(err error, fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	if err != nil {
		out[FieldError] = err.Error()
	}
	return out
}
