package streaming

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"webcam-colorspace/internal/application"
	"webcam-colorspace/internal/domain"
)

const defaultIOTimeout = 30 * time.Second

// WebSocketUploader sends result files to a colorspace-sink over one WebSocket connection.
type WebSocketUploader struct {
	url     string
	session string
	logger  application.Logger
	dialer  *websocket.Dialer

	conn  *websocket.Conn
	mutex sync.Mutex
}

// NewWebSocketUploader creates an uploader for addr, either "host:port" or a
// full ws:// or wss:// URL. Every uploader gets its own session ID.
func NewWebSocketUploader(addr string, logger application.Logger) *WebSocketUploader {
	return &WebSocketUploader{
		url:     SinkURL(addr),
		session: uuid.NewString(),
		logger:  logger,
		dialer:  websocket.DefaultDialer,
	}
}

// SinkURL expands a bare host:port into the sink's WebSocket endpoint.
func SinkURL(addr string) string {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return addr
	}
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	return u.String()
}

// Session returns the ID the sink files uploads under.
func (s *WebSocketUploader) Session() string {
	return s.session
}

func (s *WebSocketUploader) connect(ctx context.Context) error {
	if s.conn != nil {
		return nil
	}

	s.logger.Info("Connecting to %s", s.url)
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("connect to sink: %w", err)
	}
	s.conn = conn
	s.logger.Debug("Connected to sink, session %s", s.session)
	return nil
}

// Upload sends one file and waits for the sink's acknowledgement.
func (s *WebSocketUploader) Upload(ctx context.Context, name string, data []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.connect(ctx); err != nil {
		return err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultIOTimeout)
	}
	_ = s.conn.SetWriteDeadline(deadline)
	_ = s.conn.SetReadDeadline(deadline)

	header := domain.UploadHeader{Session: s.session, Name: name, Size: len(data)}
	if err := s.conn.WriteJSON(header); err != nil {
		return s.fail(fmt.Errorf("send header: %w", err))
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return s.fail(fmt.Errorf("send data: %w", err))
	}

	var ack domain.UploadAck
	if err := s.conn.ReadJSON(&ack); err != nil {
		return s.fail(fmt.Errorf("read ack: %w", err))
	}
	if !ack.OK {
		return fmt.Errorf("sink rejected %s: %s", name, ack.Error)
	}
	return nil
}

// fail drops a connection that is in an unknown state after an I/O error.
func (s *WebSocketUploader) fail(err error) error {
	s.conn.Close()
	s.conn = nil
	return err
}

// Close says goodbye to the sink and closes the connection
func (s *WebSocketUploader) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.conn == nil {
		return nil
	}

	err := s.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		s.logger.Error("Failed to close WebSocket: %v", err)
	}

	closeErr := s.conn.Close()
	s.conn = nil
	return closeErr
}
