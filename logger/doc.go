// Package logger is a thin zerolog wrapper used by every chatstream package.
//
// Fields are passed as plain maps so call sites stay short:
//
//	log := logger.WithComponent("hub")
//	log.Info("Subscriber added", map[string]interface{}{"sink_id": id})
package logger
