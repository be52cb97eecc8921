package stream

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
	sendBuffer = 16
	readLimit  = 1 << 10
)

// ErrSlowConsumer is returned by Send when a subscriber's buffer is full.
var ErrSlowConsumer = errors.New("stream: subscriber too slow")

// wsConn adapts a websocket to Conn. Sends are queued and written by a single
// writer goroutine; a full queue drops the subscriber instead of stalling the
// publishing request.
type wsConn struct {
	conn    *websocket.Conn
	msgType int // websocket.TextMessage or BinaryMessage
	send    chan []byte
	once    sync.Once
	done    chan struct{}
}

func newWSConn(c *websocket.Conn, codec Codec) *wsConn {
	mt := websocket.TextMessage
	if codec == CodecMsgpack {
		mt = websocket.BinaryMessage
	}
	return &wsConn{conn: c, msgType: mt, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
}

func (w *wsConn) Send(b []byte) error {
	select {
	case <-w.done:
		return websocket.ErrCloseSent
	default:
	}
	select {
	case w.send <- b:
		return nil
	default:
		return ErrSlowConsumer
	}
}

func (w *wsConn) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.conn.Close()
	})
	return err
}

// writeLoop drains the send queue and keeps the connection alive with pings.
func (w *wsConn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case b := <-w.send:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(w.msgType, b); err != nil {
				_ = w.Close()
				return
			}
		case <-ticker.C:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = w.Close()
				return
			}
		}
	}
}

func (h *Hub) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			o := r.Header.Get("Origin")
			return h.origin == "*" || o == "" || o == h.origin
		},
	}
}

// ServeWS upgrades the request and subscribes the connection until the client
// goes away. ?enc=msgpack selects binary MessagePack frames. Client frames are
// read and discarded; the stream is one-way.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	codec := ParseCodec(r.URL.Query().Get("enc"))
	up := h.upgrader()
	c, err := up.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("ws upgrade")
		return
	}
	conn := newWSConn(c, codec)
	id := h.AddCodec(conn, codec)
	defer h.Remove(id)
	go conn.writeLoop()

	c.SetReadLimit(readLimit)
	_ = c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Int64("sub", id).Msg("ws read")
			}
			return
		}
	}
}
