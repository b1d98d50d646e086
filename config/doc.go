// Package config loads the chat server configuration.
//
// The first file found among ./application.yaml, /etc/config/easy-chat.yaml
// and the path in $EASY_CHAT_CONFIG is read through Viper; a missing file is
// an error. A .env file in the working directory is loaded first, and
// EASY_CHAT_* variables override file values, with underscores standing for
// both section separators and multi-word keys:
//
//	EASY_CHAT_SERVER_PORT=7000
//	EASY_CHAT_DB_MAX_OPEN_CONNS=20
//	EASY_CHAT_AUTH_PRIVATE_KEY="$(cat ed25519.pem)"
//
// Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
