package infra

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Websocket upgrades echo requests to websocket sessions kept alive by ping frames
type Websocket struct {
	upgrader     websocket.Upgrader
	writeWait    time.Duration
	pongWait     time.Duration
	pingInterval time.Duration
}

// NewWebsocket create a Websocket, a peer that does not answer pings within pongWait is dropped
func NewWebsocket(pongWait time.Duration) *Websocket {
	return &Websocket{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			HandshakeTimeout: 3 * time.Second,
		},
		writeWait:    10 * time.Second,
		pongWait:     pongWait,
		pingInterval: pongWait * 9 / 10,
	}
}

// Serve upgrade the request and call handler repeatedly until it returns an error,
// then the connection is closed. It blocks for the lifetime of the connection so
// that handler may keep using c.
func (ws *Websocket) Serve(c echo.Context, handler func(*websocket.Conn) error) error {
	conn, err := ws.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// upgrader has already replied
		return nil
	}

	done := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(ws.pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(ws.pongWait))
		return nil
	})
	go ws.heartbeatRoutine(conn, done)
	ws.processRoutine(conn, handler, done)
	return nil
}

func (ws *Websocket) heartbeatRoutine(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(ws.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ws.writeWait)); err != nil {
				conn.Close()
				return
			}
		case <-done:
			return
		}
	}
}

func (ws *Websocket) processRoutine(conn *websocket.Conn, handler func(*websocket.Conn) error, done chan<- struct{}) {
	defer func() {
		close(done)
		conn.Close()
	}()
	for {
		if err := handler(conn); err != nil {
			break
		}
	}
}

// WriteJSON write v with the write deadline applied
func (ws *Websocket) WriteJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(ws.writeWait))
	return conn.WriteJSON(v)
}
