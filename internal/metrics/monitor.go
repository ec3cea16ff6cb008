package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor 生命周期引擎的监控指标
type Monitor struct {
	Transitions      *prometheus.CounterVec
	TransitionErrors *prometheus.CounterVec
	Notifications    *prometheus.CounterVec
	ClientBuilds     prometheus.Counter
	LinkTokens       *prometheus.CounterVec
	Events           *prometheus.CounterVec
}

var globalMonitor = NewMonitor(prometheus.DefaultRegisterer)

// GetMonitor 获取全局监控实例
func GetMonitor() *Monitor {
	return globalMonitor
}

// NewMonitor 创建并注册指标，reg 为 nil 时只创建不注册（测试用）
func NewMonitor(reg prometheus.Registerer) *Monitor {
	m := &Monitor{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "herbal",
			Name:      "transitions_total",
			Help:      "Committed status transitions.",
		}, []string{"entity", "to"}),
		TransitionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "herbal",
			Name:      "transition_errors_total",
			Help:      "Refused or failed transition calls.",
		}, []string{"entity", "kind"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "herbal",
			Name:      "notifications_total",
			Help:      "Notification dispatch attempts by result.",
		}, []string{"result"}),
		ClientBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "herbal",
			Name:      "mail_client_builds_total",
			Help:      "Mail client constructions (first use, credential change or after failure).",
		}),
		LinkTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "herbal",
			Name:      "link_tokens_total",
			Help:      "Link token verifications by result.",
		}, []string{"result"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "herbal",
			Name:      "lifecycle_events_total",
			Help:      "Lifecycle event publications by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.Transitions, m.TransitionErrors, m.Notifications, m.ClientBuilds, m.LinkTokens, m.Events)
	}
	return m
}

// RecordTransition 记录一次已提交的状态变更
func (m *Monitor) RecordTransition(entity, to string) {
	m.Transitions.WithLabelValues(entity, to).Inc()
}

// RecordTransitionError 记录被拒绝或失败的状态变更
func (m *Monitor) RecordTransitionError(entity, kind string) {
	m.TransitionErrors.WithLabelValues(entity, kind).Inc()
}

// RecordNotification result: sent / not_configured / failed
func (m *Monitor) RecordNotification(result string) {
	m.Notifications.WithLabelValues(result).Inc()
}

func (m *Monitor) RecordClientBuild() {
	m.ClientBuilds.Inc()
}

// RecordLinkToken result: ok / invalid / used
func (m *Monitor) RecordLinkToken(result string) {
	m.LinkTokens.WithLabelValues(result).Inc()
}

func (m *Monitor) RecordEvent(result string) {
	m.Events.WithLabelValues(result).Inc()
}

// Handler /metrics 接口
func Handler() http.Handler {
	return promhttp.Handler()
}
