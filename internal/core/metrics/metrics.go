// Package metrics 提供端点的 Prometheus 指标
//
// 指标实例通过 SetGlobal 安装，未安装时所有访问函数返回空实现，
// 调用方无需判空。
package metrics

import (
	"errors"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// 指标名前缀
const namespace = "quicpeer"

var global atomic.Pointer[Metrics]

// SetGlobal 安装全局指标实例，传入 nil 表示卸载
func SetGlobal(m *Metrics) {
	global.Store(m)
}

// Gauge 可增减的指标
type Gauge interface {
	Inc()
	Dec()
}

// Counter 只增不减的指标
type Counter interface {
	Inc()
}

// Metrics 端点指标集合
type Metrics struct {
	endpoints     prometheus.Gauge
	connections   *prometheus.CounterVec
	connectErrors *prometheus.CounterVec
	streams       *prometheus.CounterVec
}

// NewMetrics 创建指标并注册到 reg，reg 为 nil 时不注册
//
// reg 上已注册过同名指标时复用已有的指标，多个节点可以共享同一个 reg。
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		endpoints: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "endpoints",
				Help:      "Current number of bound endpoints",
			}),
		connections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connections_total",
				Help:      "Total number of established connections",
			},
			[]string{"direction"}),
		connectErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connect_errors_total",
				Help:      "Total number of failed outbound connection attempts",
			},
			[]string{"reason"}),
		streams: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "streams_total",
				Help:      "Total number of opened or accepted streams",
			},
			[]string{"type", "direction"}),
	}

	if reg == nil {
		return m, nil
	}

	var err error
	if m.endpoints, err = register(reg, m.endpoints); err != nil {
		return nil, err
	}
	if m.connections, err = register(reg, m.connections); err != nil {
		return nil, err
	}
	if m.connectErrors, err = register(reg, m.connectErrors); err != nil {
		return nil, err
	}
	if m.streams, err = register(reg, m.streams); err != nil {
		return nil, err
	}
	return m, nil
}

// register 注册 c，已存在时返回已注册的实例
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}

// Endpoints 当前绑定的端点数量
func Endpoints() Gauge {
	m := global.Load()
	if m == nil {
		return nilGauge
	}
	return m.endpoints
}

// Connections 已建立的连接数，direction 为 inbound 或 outbound
func Connections(direction string) Counter {
	m := global.Load()
	if m == nil {
		return nilCounter
	}
	return m.connections.With(prometheus.Labels{"direction": direction})
}

// ConnectErrors 出站连接失败次数
func ConnectErrors(reason string) Counter {
	m := global.Load()
	if m == nil {
		return nilCounter
	}
	return m.connectErrors.With(prometheus.Labels{"reason": reason})
}

// Streams 流数量，typ 为 bi 或 uni
func Streams(typ, direction string) Counter {
	m := global.Load()
	if m == nil {
		return nilCounter
	}
	return m.streams.With(prometheus.Labels{"type": typ, "direction": direction})
}

var (
	nilGauge   = &noopGauge{}
	nilCounter = &noopCounter{}
)

type noopGauge struct{}

func (*noopGauge) Inc() {}
func (*noopGauge) Dec() {}

type noopCounter struct{}

func (*noopCounter) Inc() {}
