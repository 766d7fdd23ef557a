package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	messageBufferSize = 32
	maxInboundBytes   = 512
)

// clientWriter owns all writes to one connection. Everything else hands it
// frames through sendChannel.
type clientWriter struct {
	connection  *websocket.Conn
	clock       clockwork.Clock
	sendChannel chan []byte
	doneChannel chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func newClientWriter(connection *websocket.Conn, clock clockwork.Clock) *clientWriter {
	cw := &clientWriter{
		connection:  connection,
		clock:       clock,
		sendChannel: make(chan []byte, messageBufferSize),
		doneChannel: make(chan struct{}),
	}
	cw.configureReads()
	cw.wg.Add(1)
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	ticker := cw.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer cw.wg.Done()

	for {
		select {
		case msg := <-cw.sendChannel:
			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.TextMessage, msg); err != nil {
				_ = cw.connection.Close()
				return
			}
		case <-ticker.Chan():
			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = cw.connection.Close()
				return
			}
		case <-cw.doneChannel:
			return
		}
	}
}

// enqueue hands msg to the writer without blocking. It reports false when the
// connection's buffer is full or the writer has stopped.
func (cw *clientWriter) enqueue(msg []byte) bool {
	select {
	case <-cw.doneChannel:
		return false
	default:
	}
	select {
	case cw.sendChannel <- msg:
		return true
	default:
		return false
	}
}

func (cw *clientWriter) stop() {
	cw.stopOnce.Do(func() {
		close(cw.doneChannel)
		_ = cw.connection.Close()
	})
	cw.wg.Wait()
}

// stopGraceful sends a close frame with reason before closing.
func (cw *clientWriter) stopGraceful(reason string) {
	cw.stopOnce.Do(func() {
		close(cw.doneChannel)
		// run must exit before we write, gorilla allows one concurrent writer.
		cw.wg.Wait()

		closeMsg := websocket.FormatCloseMessage(websocket.CloseGoingAway, reason)
		cw.updateWriteDeadline()
		_ = cw.connection.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = cw.connection.Close()
	})
	cw.wg.Wait()
}

func (cw *clientWriter) configureReads() {
	cw.connection.SetReadLimit(maxInboundBytes)
	cw.updateReadDeadline()
	cw.connection.SetPongHandler(func(string) error {
		cw.updateReadDeadline()
		return nil
	})
}

// readUntilClosed drains inbound frames so control frames (pong, close) are
// processed. Clients have nothing to say on this channel; data frames are dropped.
func (cw *clientWriter) readUntilClosed() {
	for {
		if _, _, err := cw.connection.ReadMessage(); err != nil {
			return
		}
		cw.updateReadDeadline()
	}
}

func (cw *clientWriter) updateWriteDeadline() {
	_ = cw.connection.SetWriteDeadline(cw.clock.Now().Add(writeDeadline))
}

func (cw *clientWriter) updateReadDeadline() {
	_ = cw.connection.SetReadDeadline(cw.clock.Now().Add(pongDeadline))
}
