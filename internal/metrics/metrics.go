package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 标签名
const (
	LabelSource = "source"
	LabelReason = "reason"
	LabelName   = "name"
	LabelCue    = "cue"
	LabelMethod = "method"
	LabelPath   = "path"
	LabelStatus = "status"
)

// 转动指标
var (
	SpinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slot_spins_total",
			Help: "已开始的转动次数",
		},
		[]string{LabelSource},
	)

	SpinRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slot_spin_rejections_total",
			Help: "被拒绝的转动请求次数",
		},
		[]string{LabelReason},
	)

	OutcomeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slot_outcome_errors_total",
			Help: "获取转动结果失败次数",
		},
	)

	WinAmountTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slot_win_amount_total",
			Help: "累计派奖金额",
		},
	)

	FreeSpinsTriggered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slot_free_spins_triggered_total",
			Help: "免费旋转触发次数（含再触发）",
		},
	)
)

// 事件指标
var (
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slot_events_published_total",
			Help: "事件总线发布的事件数",
		},
		[]string{LabelName},
	)

	EventHandlerPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slot_event_handler_panics_total",
			Help: "事件订阅者panic次数",
		},
		[]string{LabelName},
	)

	AnimationCueErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slot_animation_cue_errors_total",
			Help: "动画处理器失败次数",
		},
		[]string{LabelCue},
	)
)

// HTTP指标
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slot_http_requests_total",
			Help: "HTTP请求数",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slot_websocket_clients",
			Help: "当前WebSocket连接数",
		},
	)
)
