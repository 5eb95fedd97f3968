package cache

import "bytes"

// ObjectBuffer 在回源转发过程中积累正文字节，最多保留 limit 字节。
// 一旦累计写入量超过上限即放弃已积累的内容并停止复制，转发本身不受影响；
// Write 永不报错，因而可以安全地挂在 io.MultiWriter 上与客户端写入并行。
type ObjectBuffer struct {
	limit      int64
	buf        bytes.Buffer
	written    int64
	overflowed bool
}

// NewObjectBuffer 创建上限为 limit 字节的积累缓冲。
func NewObjectBuffer(limit int64) *ObjectBuffer {
	return &ObjectBuffer{limit: limit}
}

// Write 实现 io.Writer；超限后只计数不再留存。
func (b *ObjectBuffer) Write(p []byte) (int, error) {
	b.written += int64(len(p))
	if !b.overflowed {
		if b.written > b.limit {
			b.overflowed = true
			b.buf.Reset()
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

// Overflowed 返回正文是否超过单对象上限（超限对象不具备缓存资格）。
func (b *ObjectBuffer) Overflowed() bool {
	return b.overflowed
}

// Bytes 返回完整积累的正文；超限时返回 nil。
func (b *ObjectBuffer) Bytes() []byte {
	if b.overflowed {
		return nil
	}
	return b.buf.Bytes()
}

// Size 返回从上游读到的累计字节数（含超限后未留存的部分）。
func (b *ObjectBuffer) Size() int64 {
	return b.written
}
