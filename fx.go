package quicpeer

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-quicpeer/internal/core/metrics"
	"github.com/dep2p/go-quicpeer/internal/core/transport/quic"
)

// buildFxApp 构建 Fx 应用
//
// 配置验证通过后加载 quic 模块，并把端点、入站序列和客户端配置注入 node。
// fx.New 返回时端点已经绑定。
func buildFxApp(o *options, node *Node) (*fx.App, error) {
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if o.registerer != nil {
		m, err := metrics.NewMetrics(o.registerer)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		metrics.SetGlobal(m)
	}

	fxLogger := o.fxLogger
	if fxLogger == nil {
		fxLogger = zap.NewNop()
	}

	app := fx.New(
		fx.Supply(o.config),
		quic.Module(),
		fx.Populate(&node.endpoint, &node.incoming, &node.clientConfig),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: fxLogger}
		}),
	)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}
