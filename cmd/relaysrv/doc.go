// Package `relaysrv` implements the TCP relay application: every chunk of bytes
// received from one client is forwarded to all other connected clients.
//
// Launch relay on port 20000:
//
//	relaysrv 20000
//
// Other settings are read from environment variables or from `.env` file
// in the working directory:
//
//	RELAY_LISTEN_ADDR            IPv4 address to bind, all interfaces by default
//	RELAY_BACKLOG                listen backlog (10)
//	RELAY_READ_BUFFER            maximum size of one relayed chunk (4096)
//	RELAY_WAIT_TIMEOUT           readiness wait timeout (120s)
//	RELAY_STOP_ON_IDLE           stop after wait timeout instead of waiting again (false)
//	RELAY_STOP_WHEN_EMPTY        stop when the last client leaves (true)
//	RELAY_HISTORY_GREETS         num of latest chunks pushed to newly connected client (0)
//	RELAY_ADMIN_ADDR             admin HTTP address, disabled when empty
//	LOG_LEVEL                    debug, info, warn or error (info)
//	LOG_FORMAT                   text or json (text)
//
// Or quickly launch relay with command:
//
//	go run . 20000
package main
