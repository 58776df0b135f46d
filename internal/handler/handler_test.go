package handler_test

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"github.com/n1shan1/pms-trade-capture/internal/codec"
	"github.com/n1shan1/pms-trade-capture/internal/domain"
	"github.com/n1shan1/pms-trade-capture/internal/handler"
	"github.com/n1shan1/pms-trade-capture/internal/handler/mock"
)

// ── helpers ───────────────────────────────────────────────────────────────

type handlerMocks struct {
	buffer     *mock.MockReplayBuffer
	stream     *mock.MockStreamStatus
	breaker    *mock.MockBreakerStatus
	dispatcher *mock.MockDispatcherStatus
}

func newHandler(t *testing.T) (*handler.PipelineHandler, *handlerMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := &handlerMocks{
		buffer:     mock.NewMockReplayBuffer(ctrl),
		stream:     mock.NewMockStreamStatus(ctrl),
		breaker:    mock.NewMockBreakerStatus(ctrl),
		dispatcher: mock.NewMockDispatcherStatus(ctrl),
	}
	h := handler.NewPipelineHandler(m.buffer, m.stream, m.breaker, m.dispatcher, zaptest.NewLogger(t))
	return h, m
}

func doRequest(t *testing.T, h func(echo.Context) error, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h(c))
	return rec
}

func validFrameHex(t *testing.T) string {
	t.Helper()
	raw := codec.Encode(&domain.TradeEvent{
		TradeID:       uuid.New(),
		PortfolioID:   uuid.New(),
		Symbol:        "MSFT",
		Side:          domain.SideSell,
		PricePerStock: 311.25,
		Quantity:      40,
		EventUnixMs:   1700000000000,
	})
	return hex.EncodeToString(raw)
}

// ── health and status ─────────────────────────────────────────────────────

func TestHealth_ReturnsOK(t *testing.T) {
	h, _ := newHandler(t)

	rec := doRequest(t, h.Health, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestPipelineStatus_SnapshotsAllParts(t *testing.T) {
	h, m := newHandler(t)
	m.stream.EXPECT().IsPaused().Return(true)
	m.buffer.EXPECT().Depth().Return(42)
	m.breaker.EXPECT().State().Return("open")
	m.dispatcher.EXPECT().Backoff().Return(1500 * time.Millisecond)

	rec := doRequest(t, h.PipelineStatus, http.MethodGet, "/admin/pipeline", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["stream_paused"])
	assert.Equal(t, float64(42), body["buffer_depth"])
	assert.Equal(t, "open", body["breaker_state"])
	assert.Equal(t, float64(1500), body["dispatcher_backoff_ms"])
}

// ── replay ────────────────────────────────────────────────────────────────

func TestReplayHex_ValidFrame_InjectsAtReplayOffset(t *testing.T) {
	h, m := newHandler(t)

	var injected domain.PendingMessage
	m.buffer.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg domain.PendingMessage) error {
			injected = msg
			return nil
		})

	rec := doRequest(t, h.ReplayHex, http.MethodPost, "/admin/replay/hex", validFrameHex(t))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Replay injected into buffer.", rec.Body.String())
	assert.True(t, injected.Valid())
	assert.Equal(t, domain.ReplayOffset, injected.Offset)
	assert.Nil(t, injected.Ack, "replays must never acknowledge stream offsets")
}

func TestReplayHex_UndecodableFrame_StillInjected(t *testing.T) {
	h, m := newHandler(t)

	var injected domain.PendingMessage
	m.buffer.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg domain.PendingMessage) error {
			injected = msg
			return nil
		})

	rec := doRequest(t, h.ReplayHex, http.MethodPost, "/admin/replay/hex", "ff01")

	assert.Equal(t, http.StatusOK, rec.Code,
		"an undecodable frame still takes the quarantine path through the buffer")
	assert.False(t, injected.Valid())
	assert.NotEmpty(t, injected.InvalidReason)
	assert.Equal(t, []byte{0xff, 0x01}, injected.Raw)
}

func TestReplayHex_InvalidHex_Rejected(t *testing.T) {
	h, _ := newHandler(t)

	rec := doRequest(t, h.ReplayHex, http.MethodPost, "/admin/replay/hex", "not-hex-at-all")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid Hex", rec.Body.String())
}

func TestReplayHex_EmptyBody_Rejected(t *testing.T) {
	h, _ := newHandler(t)

	rec := doRequest(t, h.ReplayHex, http.MethodPost, "/admin/replay/hex", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid Hex", rec.Body.String())
}

func TestReplayHex_SurroundingWhitespace_Accepted(t *testing.T) {
	h, m := newHandler(t)
	m.buffer.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil)

	rec := doRequest(t, h.ReplayHex, http.MethodPost, "/admin/replay/hex",
		"  "+validFrameHex(t)+"\n")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReplayHex_BufferUnavailable_Returns503(t *testing.T) {
	h, m := newHandler(t)
	m.buffer.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
		Return(errors.New("context canceled"))

	rec := doRequest(t, h.ReplayHex, http.MethodPost, "/admin/replay/hex", validFrameHex(t))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
