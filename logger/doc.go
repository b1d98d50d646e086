// Package logger provides structured logging for the chat server on top of
// zerolog.
//
// # Configuration
//
//	log:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("auth")
//	log.Warn("token verification failed", map[string]interface{}{
//	    logger.FieldRequestID: id,
//	    logger.FieldError:     err.Error(),
//	})
package logger
