package handlers

import (
	"context"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/intent-api/backend/internal/metrics"
	"github.com/intent-api/backend/pkg/logger"
)

// WebSocketHandler serves a long-lived prediction stream: each
// {"type":"predict","text":...} message is answered with a prediction or an
// error message on the same connection.
type WebSocketHandler struct {
	service       PredictionService
	maxTextLength int
}

func NewWebSocketHandler(service PredictionService, maxTextLength int) *WebSocketHandler {
	return &WebSocketHandler{
		service:       service,
		maxTextLength: maxTextLength,
	}
}

// Upgrade rejects plain HTTP requests to the websocket route.
func (h *WebSocketHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

type wsRequest struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

type wsPrediction struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	PredictResponse
	Cached    bool `json:"cached"`
	LatencyMS int  `json:"latency_ms"`
}

type wsError struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

// HandleConnection answers messages in order. Reads happen on a separate
// goroutine so a dropped connection cancels the prediction in flight.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")
	metrics.WebSocketConnections.Inc()

	ctx, cancel := context.WithCancel(context.Background())
	msgs := make(chan wsRequest)
	readerDone := make(chan struct{})
	go readMessages(ctx, cancel, c, msgs, readerDone)

	defer func() {
		cancel()
		c.Close()
		<-readerDone
		metrics.WebSocketConnections.Dec()
		logger.Info("WebSocket connection closed")
	}()

	for msg := range msgs {
		if err := h.handleMessage(ctx, c, msg); err != nil {
			logger.Error("Failed to write WebSocket message", zap.Error(err))
			return
		}
	}
}

func readMessages(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn, msgs chan<- wsRequest, done chan<- struct{}) {
	defer close(done)
	defer close(msgs)
	defer cancel()

	for {
		var msg wsRequest
		if err := c.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("WebSocket read ended", zap.Error(err))
			}
			return
		}

		select {
		case msgs <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, c *websocket.Conn, msg wsRequest) error {
	switch msg.Type {
	case "predict":
	case "ping":
		return c.WriteJSON(fiber.Map{"type": "pong", "id": msg.ID})
	default:
		return h.sendError(c, msg.ID, "type: unsupported message type")
	}

	if msg.Text == "" {
		return h.sendError(c, msg.ID, "text: must not be empty")
	}
	if h.maxTextLength > 0 && utf8.RuneCountInString(msg.Text) > h.maxTextLength {
		return h.sendError(c, msg.ID, "text: exceeds maximum length")
	}

	response, err := h.service.Predict(ctx, msg.Text)
	if err != nil {
		logger.Error("Failed to process WebSocket prediction", zap.Error(err))
		return h.sendError(c, msg.ID, "Failed to process prediction")
	}

	return c.WriteJSON(wsPrediction{
		Type:            "prediction",
		ID:              msg.ID,
		PredictResponse: toPredictResponse(response),
		Cached:          response.Cached,
		LatencyMS:       response.LatencyMS,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, id, errorMsg string) error {
	return c.WriteJSON(wsError{
		Type:  "error",
		ID:    id,
		Error: errorMsg,
	})
}
