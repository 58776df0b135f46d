// Package handler exposes the pipeline's HTTP surface: liveness, an
// operational status snapshot and the hex replay endpoint that re-injects a
// raw frame into the ingestion buffer.
package handler

import (
	"context"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/n1shan1/pms-trade-capture/internal/codec"
	"github.com/n1shan1/pms-trade-capture/internal/domain"
)

// ReplayBuffer accepts re-injected messages and reports backlog depth.
type ReplayBuffer interface {
	Enqueue(ctx context.Context, msg domain.PendingMessage) error
	Depth() int
}

// StreamStatus reports whether backpressure has paused the source stream.
type StreamStatus interface {
	IsPaused() bool
}

// BreakerStatus names the persistence circuit breaker's current state.
type BreakerStatus interface {
	State() string
}

// DispatcherStatus reports the outbox dispatcher's current backoff.
type DispatcherStatus interface {
	Backoff() time.Duration
}

type PipelineHandler struct {
	buffer     ReplayBuffer
	stream     StreamStatus
	breaker    BreakerStatus
	dispatcher DispatcherStatus
	log        *zap.Logger
}

func NewPipelineHandler(
	buffer ReplayBuffer,
	stream StreamStatus,
	breaker BreakerStatus,
	dispatcher DispatcherStatus,
	log *zap.Logger,
) *PipelineHandler {
	return &PipelineHandler{
		buffer:     buffer,
		stream:     stream,
		breaker:    breaker,
		dispatcher: dispatcher,
		log:        log,
	}
}

func (h *PipelineHandler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	admin := e.Group("/admin")
	admin.GET("/pipeline", h.PipelineStatus)
	admin.POST("/replay/hex", h.ReplayHex)
}

type pipelineStatus struct {
	StreamPaused        bool   `json:"stream_paused"`
	BufferDepth         int    `json:"buffer_depth"`
	BreakerState        string `json:"breaker_state"`
	DispatcherBackoffMs int64  `json:"dispatcher_backoff_ms"`
}

func (h *PipelineHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// PipelineStatus snapshots the moving parts an operator checks first during
// an incident: is the stream paused, how deep is the buffer, is the breaker
// open, is the dispatcher backing off.
func (h *PipelineHandler) PipelineStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, pipelineStatus{
		StreamPaused:        h.stream.IsPaused(),
		BufferDepth:         h.buffer.Depth(),
		BreakerState:        h.breaker.State(),
		DispatcherBackoffMs: h.dispatcher.Backoff().Milliseconds(),
	})
}

// ReplayHex re-injects one hex-encoded raw frame. The frame takes the
// normal ingestion path (classification, audit, outbox) at the replay
// sentinel offset and with no ack handle, so offset acknowledgement never
// sees it.
func (h *PipelineHandler) ReplayHex(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.String(http.StatusBadRequest, "Invalid Hex")
	}
	raw, err := hex.DecodeString(strings.TrimSpace(string(body)))
	if err != nil || len(raw) == 0 {
		return c.String(http.StatusBadRequest, "Invalid Hex")
	}

	var pending domain.PendingMessage
	if trade, reason := codec.Classify(raw); reason != "" {
		pending = domain.NewInvalidMessage(raw, domain.ReplayOffset, reason, nil)
	} else {
		pending = domain.NewPendingMessage(trade, raw, domain.ReplayOffset, nil)
	}

	if err := h.buffer.Enqueue(c.Request().Context(), pending); err != nil {
		h.log.Warn("replay rejected, buffer unavailable", zap.Error(err))
		return c.String(http.StatusServiceUnavailable, "Buffer rejected replay")
	}

	h.log.Info("replay frame injected",
		zap.Int("bytes", len(raw)),
		zap.Bool("decodable", pending.Valid()),
	)
	return c.String(http.StatusOK, "Replay injected into buffer.")
}
