// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the event feed.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Provided auth token was invalid or expired.
	NotManagerError       = 3002 // The feed is reserved for manager tokens.
)
