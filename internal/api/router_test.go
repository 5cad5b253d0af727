package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/slot-client/internal/config"
	"github.com/wfunc/slot-client/internal/errors"
	"github.com/wfunc/slot-client/internal/game"
	"github.com/wfunc/slot-client/internal/websocket"
	"go.uber.org/zap/zaptest"
)

func newTestRouter(t *testing.T) *Router {
	cfg := config.Default()
	cfg.Server.Mode = "test"
	cfg.Game.Mock.Latency = 0
	logger := zaptest.NewLogger(t)

	g, err := game.New(cfg.Game, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		g.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		g.Close()
	})
	return NewRouter(g, nil, cfg, logger)
}

func request(t *testing.T, r *Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, req)
	return w
}

type errorBody struct {
	Success bool `json:"success"`
	Error   struct {
		Code errors.ErrorCode `json:"code"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errors.ErrorCode {
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Error.Code
}

func TestRouter_Health(t *testing.T) {
	r := newTestRouter(t)

	w := request(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	w = request(t, r, http.MethodGet, "/not-found", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errors.ErrNotFound, decodeError(t, w))
}

func TestRouter_SpinAndState(t *testing.T) {
	r := newTestRouter(t)

	w := request(t, r, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var state struct {
		Data game.Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, int64(1000), state.Data.State.Balance)
	assert.Len(t, state.Data.Reels, 5)

	w = request(t, r, http.MethodPost, "/api/spin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var spin struct {
		Data game.SpinResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &spin))
	assert.NotEmpty(t, spin.Data.SpinID)
	assert.Equal(t, int64(990), spin.Data.Balance)
	assert.Equal(t, int64(10), spin.Data.TotalBet)

	// 卷轴至少转动基础时长，第二次请求必然被拒绝
	w = request(t, r, http.MethodPost, "/api/spin", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, errors.ErrSpinInProgress, decodeError(t, w))
}

func TestRouter_Commands(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   errors.ErrorCode
	}{
		{"投注缺少参数", http.MethodPost, "/api/bet", map[string]int{}, http.StatusBadRequest, errors.ErrInvalidParam},
		{"投注超出范围", http.MethodPost, "/api/bet", game.BetRequest{BetPerLine: 500}, http.StatusBadRequest, errors.ErrInvalidBet},
		{"修改投注", http.MethodPost, "/api/bet", game.BetRequest{BetPerLine: 2}, http.StatusOK, 0},
		{"开启加速", http.MethodPost, "/api/turbo", game.ToggleRequest{Enabled: true}, http.StatusOK, 0},
		{"未开调试强制中奖", http.MethodPost, "/api/debug/force-win", game.ToggleRequest{Enabled: true}, http.StatusConflict, errors.ErrInvalidState},
		{"开启调试", http.MethodPost, "/api/debug", game.ToggleRequest{Enabled: true}, http.StatusOK, 0},
		{"强制中奖", http.MethodPost, "/api/debug/force-win", game.ToggleRequest{Enabled: true}, http.StatusOK, 0},
		{"故障概率越界", http.MethodPost, "/api/debug/failure-rate", game.FailureRateRequest{Rate: 1.5}, http.StatusBadRequest, errors.ErrInvalidParam},
		{"设置故障概率", http.MethodPost, "/api/debug/failure-rate", game.FailureRateRequest{Rate: 0.1}, http.StatusOK, 0},
		{"自动旋转次数无效", http.MethodPost, "/api/autoplay", game.AutoplayRequest{}, http.StatusBadRequest, errors.ErrInvalidParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(t, r, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.code != 0 {
				assert.Equal(t, tt.code, decodeError(t, w))
			}
		})
	}

	w := request(t, r, http.MethodGet, "/api/state", nil)
	var state struct {
		Data game.Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, int64(20), state.Data.State.CurrentTotalBet)
	assert.True(t, state.Data.State.IsTurboMode)
	assert.True(t, state.Data.State.ForceWin)
}

func TestRouter_Autoplay(t *testing.T) {
	r := newTestRouter(t)

	w := request(t, r, http.MethodPost, "/api/autoplay", game.AutoplayRequest{Spins: 5})
	require.Equal(t, http.StatusOK, w.Code)

	w = request(t, r, http.MethodPost, "/api/spin", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = request(t, r, http.MethodDelete, "/api/autoplay", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_Metrics(t *testing.T) {
	r := newTestRouter(t)
	request(t, r, http.MethodGet, "/health", nil)

	w := request(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "slot_http_requests_total")
}

func TestRouter_SocketCommandAfterShutdown(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Mode = "test"
	logger := zaptest.NewLogger(t)
	g, err := game.New(cfg.Game, logger)
	require.NoError(t, err)
	t.Cleanup(g.Close)
	// 游戏循环未运行，连接已结束
	r := NewRouter(g, nil, cfg, logger)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		typ  string
	}{
		{"查询状态", "state"},
		{"发起转动", "spin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			reply := r.handleSocketMessage(ctx, &websocket.Client{ID: "c1"}, &websocket.Message{Type: tt.typ})
			require.NotNil(t, reply)
			assert.Equal(t, websocket.MessageTypeError, reply.Type)
			assert.Less(t, time.Since(start), time.Second)
		})
	}
}
