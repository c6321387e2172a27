package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ericlevine/zxscan/internal/config"
	"github.com/ericlevine/zxscan/internal/imageload"
	"github.com/ericlevine/zxscan/internal/report"
	"github.com/ericlevine/zxscan/scanner"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ScanOptions is a text frame on /ws/scan. Unset fields keep their current
// value for the connection.
type ScanOptions struct {
	Formats      []string `json:"formats,omitempty"`
	TryHarder    *bool    `json:"try_harder,omitempty"`
	PureBarcode  *bool    `json:"pure_barcode,omitempty"`
	AlsoInverted *bool    `json:"also_inverted,omitempty"`
	Multi        *bool    `json:"multi,omitempty"`
}

// ScanMessage is every frame the server sends on /ws/scan. Type is
// "result" for a decoded image frame, "options" after a settings change
// and "error" for a frame that could not be used.
type ScanMessage struct {
	Type    string         `json:"type"`
	Frame   int            `json:"frame,omitempty"`
	Results []report.Entry `json:"results,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// scanSession is the state of one websocket connection. Its reader lives
// as long as the connection so consecutive frames reuse the readers built
// for the current settings.
type scanSession struct {
	conn     *websocket.Conn
	reader   *scanner.BarcodeReader
	decode   config.DecodeConfig
	multiple bool
	frames   int
}

// scanWebSocketHandler streams images in binary frames and answers each
// with the symbols found.
func (s *Server) scanWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	opts, err := s.decode.Options()
	if err != nil {
		s.logger.Error("websocket decode options", "error", err)
		return
	}
	sess := &scanSession{
		conn:   conn,
		reader: s.newReader(opts),
		decode: s.decode,
	}
	s.logger.Info("websocket session started", "remote_addr", r.RemoteAddr)
	s.serveSession(sess)
	s.logger.Info("websocket session ended", "remote_addr", r.RemoteAddr, "frames", sess.frames)
}

func (s *Server) serveSession(sess *scanSession) {
	conn := sess.conn
	conn.SetReadLimit(s.maxUpload)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var msg ScanMessage
		switch messageType {
		case websocket.BinaryMessage:
			msg = s.scanFrame(sess, data)
		case websocket.TextMessage:
			msg = s.applyOptions(sess, data)
		default:
			continue
		}
		if err := s.send(conn, msg); err != nil {
			s.logger.Warn("websocket write failed", "error", err)
			return
		}
	}
}

func (s *Server) scanFrame(sess *scanSession, data []byte) ScanMessage {
	sess.frames++
	uploadSizeBytes.Observe(float64(len(data)))

	img, err := imageload.Decode(bytes.NewReader(data), sess.decode.MaxDimension)
	if err != nil {
		return ScanMessage{Type: "error", Frame: sess.frames, Error: "invalid image: " + err.Error()}
	}
	entries, err := s.decodeImage(sess.reader, img, sess.multiple, "websocket")
	if err != nil {
		return ScanMessage{Type: "error", Frame: sess.frames, Error: err.Error()}
	}
	msg := ScanMessage{Type: "result", Frame: sess.frames, Results: entries}
	if len(entries) == 0 {
		msg.Error = failureText(sess.reader.LastErr())
	}
	return msg
}

// applyOptions changes the connection's settings. The reader drops its
// cached readers on the change.
func (s *Server) applyOptions(sess *scanSession, data []byte) ScanMessage {
	var req ScanOptions
	if err := json.Unmarshal(data, &req); err != nil {
		return ScanMessage{Type: "error", Error: fmt.Sprintf("invalid options: %v", err)}
	}

	dc := sess.decode
	if req.Formats != nil {
		dc.Formats = req.Formats
	}
	setIf(&dc.TryHarder, req.TryHarder)
	setIf(&dc.PureBarcode, req.PureBarcode)
	setIf(&dc.AlsoInverted, req.AlsoInverted)
	opts, err := dc.Options()
	if err != nil {
		return ScanMessage{Type: "error", Error: err.Error()}
	}

	sess.decode = dc
	setIf(&sess.multiple, req.Multi)
	sess.reader.SetOptions(opts)
	s.logger.Debug("websocket options changed", "formats", dc.Formats, "try_harder", dc.TryHarder, "multi", sess.multiple)
	return ScanMessage{Type: "options"}
}

func setIf(dst, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func (s *Server) send(conn *websocket.Conn, msg ScanMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		return err
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
	return nil
}
