package sink

import (
	"net/http"

	"github.com/gorilla/websocket"

	"webcam-colorspace/internal/application"
	"webcam-colorspace/internal/domain"
)

// maxUploadSize bounds a single WebSocket message (a 4K RGB bitmap is ~25 MB).
const maxUploadSize = 256 << 20

// Handler accepts uploads on a WebSocket connection.
type Handler struct {
	store    *Store
	logger   application.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates the /ws handler.
func NewHandler(store *Store, logger application.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // clients are CLIs, not browsers
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxUploadSize)

	h.logger.Info("Client connected: %s", r.RemoteAddr)
	for {
		var header domain.UploadHeader
		if err := conn.ReadJSON(&header); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Info("Client disconnected: %s", r.RemoteAddr)
			} else {
				h.logger.Error("Reading upload header: %v", err)
			}
			return
		}

		messageType, data, err := conn.ReadMessage()
		if err != nil {
			h.logger.Error("Reading upload body for %s: %v", header.Name, err)
			return
		}

		ack := domain.UploadAck{Name: header.Name, OK: true}
		if messageType != websocket.BinaryMessage {
			ack.OK, ack.Error = false, "expected a binary message"
		} else if _, err := h.store.Save(header, data); err != nil {
			h.logger.Error("Rejected upload %s: %v", header.Name, err)
			ack.OK, ack.Error = false, err.Error()
		}

		if err := conn.WriteJSON(ack); err != nil {
			h.logger.Error("Sending ack: %v", err)
			return
		}
	}
}
