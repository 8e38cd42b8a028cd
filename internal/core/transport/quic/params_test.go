package quic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildTransport(t *testing.T) {
	p := BuildTransport(30_000, 10_000)
	assert.Equal(t, 30*time.Second, p.IdleTimeout)
	assert.Equal(t, 10*time.Second, p.KeepAliveInterval)
	assert.False(t, p.IdleTimeoutDisabled())
	assert.NoError(t, p.Validate())
	assert.Equal(t, "idle=30s keepalive=10s", p.String())
}

func TestBuildTransport_Disabled(t *testing.T) {
	p := BuildTransport(0, 0)
	assert.True(t, p.IdleTimeoutDisabled())
	assert.Equal(t, time.Duration(0), p.KeepAliveInterval)
	assert.NoError(t, p.Validate())
	assert.Equal(t, "idle=disabled keepalive=0s", p.String())

	// 禁用的空闲超时不能落到 quic-go 的默认值上
	qc := p.quicConfig()
	assert.Equal(t, disabledIdleTimeout, qc.MaxIdleTimeout)
	assert.Equal(t, time.Duration(0), qc.KeepAlivePeriod)
}

func TestTransportParameters_Validate(t *testing.T) {
	tests := []struct {
		name    string
		idle    uint64
		keep    uint32
		wantErr bool
	}{
		{"keep-alive only", 0, 5_000, false},
		{"idle only", 5_000, 0, false},
		{"consistent", 5_000, 1_000, false},
		{"equal", 5_000, 5_000, true},
		{"keep-alive exceeds idle", 1_000, 5_000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := BuildTransport(tt.idle, tt.keep).Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInconsistentTransport)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransportParameters_QUICConfig(t *testing.T) {
	p := BuildTransport(1_500, 250)

	qc := p.quicConfig()
	assert.Equal(t, 1500*time.Millisecond, qc.MaxIdleTimeout)
	assert.Equal(t, 250*time.Millisecond, qc.KeepAlivePeriod)
	assert.Equal(t, int64(maxIncomingStreams), qc.MaxIncomingStreams)
	assert.Equal(t, int64(maxIncomingUniStreams), qc.MaxIncomingUniStreams)

	// 每次返回新对象
	assert.NotSame(t, qc, p.quicConfig())
}
