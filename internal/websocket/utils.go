package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeDeadline = 10 * time.Second
	readDeadline  = 5 * time.Minute
)

// WriteTyped sends one ServerMessage-shaped payload with a write deadline.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return conn.WriteJSON(v)
}

// WriteError sends a typed error event.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ServerMessage{Event: EventError, Error: errMsg})
}

// ReadJSON decodes the next client message. The generous read deadline doubles
// as an idle timeout for abandoned tabs.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(readDeadline))
	return conn.ReadJSON(v)
}
