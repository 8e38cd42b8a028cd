// Package quic 基于 quic-go 引导安全的多路复用连接
package quic

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"
)

// StreamState 流状态
//
//	Open ──Finish──▶ Finished ──Reset/对端停止──▶ Closed
//
// 接收方向无法在读到 io.EOF 之前观察到 FIN，因此接收流从 Open 直接进入 Closed。
type StreamState int32

const (
	// StreamOpen 可能还有数据到达
	StreamOpen StreamState = iota
	// StreamFinished 发送方已声明不再发送数据
	StreamFinished
	// StreamClosed 已读尽或已释放
	StreamClosed
)

// String 返回状态名称
func (s StreamState) String() string {
	switch s {
	case StreamOpen:
		return "open"
	case StreamFinished:
		return "finished"
	case StreamClosed:
		return "closed"
	default:
		return fmt.Sprintf("StreamState(%d)", int32(s))
	}
}

// ============================================================================
//                              RecvStream
// ============================================================================

// RecvStream 流的接收方向
//
// 同一时间只能由一个 goroutine 读取。
type RecvStream struct {
	s     quic.ReceiveStream
	state atomic.Int32
}

func newRecvStream(s quic.ReceiveStream) *RecvStream {
	return &RecvStream{s: s}
}

// ID 返回流 ID
func (r *RecvStream) ID() int64 {
	return int64(r.s.StreamID())
}

// State 返回接收方向的状态
func (r *RecvStream) State() StreamState {
	return StreamState(r.state.Load())
}

// Read 单次读取，只反映当前已缓冲的数据
//
// 返回 0 字节不代表流结束：len(p) 为 0 时立即返回 0，流仍为 Open。
// 流结束由 io.EOF 表示。一次 Read 得到的不一定是完整消息，
// 需要完整负载时使用 ReadExact 或 ReadToEnd。
func (r *RecvStream) Read(p []byte) (int, error) {
	n, err := r.s.Read(p)
	if err != nil {
		// io.EOF 表示已读尽；其他错误（重置、连接终止）同样使接收方向不可再用
		r.state.Store(int32(StreamClosed))
		return n, classifyStreamError(err)
	}
	return n, nil
}

// ReadExact 读满 p
//
// 阻塞直到读到 len(p) 字节；若流先结束则返回 ErrUnexpectedEnd。
func (r *RecvStream) ReadExact(p []byte) error {
	n, err := io.ReadFull(r, p)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: got %d of %d bytes", ErrUnexpectedEnd, n, len(p))
	}
	return err
}

// ReadToEnd 读取直到流结束
//
// 收到超过 limit 字节时返回 ErrSizeLimitExceeded，此时流保持可读，
// 调用方可以继续读取或调用 Stop。
func (r *RecvStream) ReadToEnd(limit int) ([]byte, error) {
	if limit < 0 {
		limit = 0
	}

	// 多读 1 字节用于判断是否超限；limit 已是最大值时不可能超限
	n := int64(limit)
	if n < math.MaxInt64 {
		n++
	}

	data, err := io.ReadAll(io.LimitReader(r, n))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > int64(limit) {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrSizeLimitExceeded, limit)
	}
	return data, nil
}

// Stop 通知对端停止发送，丢弃未读数据
func (r *RecvStream) Stop(code uint64) {
	r.s.CancelRead(quic.StreamErrorCode(code))
	r.state.Store(int32(StreamClosed))
}

// SetReadDeadline 设置读超时
func (r *RecvStream) SetReadDeadline(t time.Time) error {
	return r.s.SetReadDeadline(t)
}

// ============================================================================
//                              SendStream
// ============================================================================

// SendStream 流的发送方向
//
// 不能由多个 goroutine 同时写入。
type SendStream struct {
	s     quic.SendStream
	state atomic.Int32
}

func newSendStream(s quic.SendStream) *SendStream {
	return &SendStream{s: s}
}

// ID 返回流 ID
func (w *SendStream) ID() int64 {
	return int64(w.s.StreamID())
}

// State 返回发送方向的状态
func (w *SendStream) State() StreamState {
	return StreamState(w.state.Load())
}

// Write 写入数据
func (w *SendStream) Write(p []byte) (int, error) {
	n, err := w.s.Write(p)
	if err != nil {
		var streamErr *quic.StreamError
		if errors.As(err, &streamErr) {
			w.state.Store(int32(StreamClosed))
		}
		return n, classifyStreamError(err)
	}
	return n, nil
}

// Finish 声明不再发送数据，不等待对端确认
func (w *SendStream) Finish() error {
	if err := w.s.Close(); err != nil {
		return err
	}
	w.state.CompareAndSwap(int32(StreamOpen), int32(StreamFinished))
	return nil
}

// Reset 放弃发送，通知对端以 code 重置流
func (w *SendStream) Reset(code uint64) {
	w.s.CancelWrite(quic.StreamErrorCode(code))
	w.state.Store(int32(StreamClosed))
}

// SetWriteDeadline 设置写超时
func (w *SendStream) SetWriteDeadline(t time.Time) error {
	return w.s.SetWriteDeadline(t)
}

// ============================================================================
//                              BiStream
// ============================================================================

// BiStream 双向流
//
// 发送与接收方向相互独立，可以分别交给两个 goroutine。
type BiStream struct {
	*SendStream
	*RecvStream
	s quic.Stream
}

func newBiStream(s quic.Stream) *BiStream {
	return &BiStream{
		SendStream: newSendStream(s),
		RecvStream: newRecvStream(s),
		s:          s,
	}
}

// ID 返回流 ID
func (b *BiStream) ID() int64 {
	return int64(b.s.StreamID())
}

// SetDeadline 同时设置读写超时
func (b *BiStream) SetDeadline(t time.Time) error {
	return b.s.SetDeadline(t)
}

// Close 结束发送方向并停止接收方向
func (b *BiStream) Close() error {
	if b.RecvStream.State() != StreamClosed {
		b.RecvStream.Stop(0)
	}
	return b.SendStream.Finish()
}
