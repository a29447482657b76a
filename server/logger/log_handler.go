// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger 組裝 crashlab 使用的 slog logger。
//
// 三種模式：Dev（文字、stderr、Debug）、Prod（JSON、stdout、Info）、Silence（全部丟棄）。
// 服務端另外可以包一層 AsyncHandler，寫 log 不會卡住請求。
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// LogMode 預設 handler 的組合
type LogMode uint8

const (
	ModeDev LogMode = iota
	ModeProd
	ModeSilence
)

var modeNames = [...]string{ModeDev: "dev", ModeProd: "prod", ModeSilence: "silence"}

// ParseMode 解析 dev / prod / silence（大小寫不拘，也接受 ModeDev 這類全名），空字串視為 dev。
func ParseMode(s string) (LogMode, bool) {
	s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "Mode"))
	if s == "" {
		return ModeDev, true
	}
	for m, name := range modeNames {
		if s == name {
			return LogMode(m), true
		}
	}
	return ModeDev, false
}

func (m LogMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// NewDefaultLogger 依模式建立同步 logger
func NewDefaultLogger(mode LogMode) *slog.Logger {
	return slog.New(buildHandler(mode, nil))
}

// NewWriterLogger 同 NewDefaultLogger，但輸出導向 w（Silence 模式忽略 w）。
func NewWriterLogger(mode LogMode, w io.Writer) *slog.Logger {
	return slog.New(buildHandler(mode, w))
}

// NewDefaultAsyncLogger 依模式建立非同步 logger，佇列 8192 筆。
func NewDefaultAsyncLogger(mode LogMode) *slog.Logger {
	return slog.New(NewAsyncHandler(buildHandler(mode, nil), 8192))
}

// NewLogger 把呼叫端自己組的 handler 包成 logger；nil 時用 Dev。
func NewLogger(h slog.Handler) *slog.Logger {
	if h == nil {
		h = buildHandler(ModeDev, nil)
	}
	return slog.New(h)
}

// NewAsync 同 NewDefaultAsyncLogger，另外回傳 handler 讓呼叫端可以 Close / 讀取 Dropped。
func NewAsync(buf int, mode LogMode) (*slog.Logger, *AsyncHandler) {
	ah := NewAsyncHandler(buildHandler(mode, nil), buf)
	return slog.New(ah), ah
}

func buildHandler(mode LogMode, w io.Writer) slog.Handler {
	switch mode {
	case ModeSilence:
		return slog.DiscardHandler
	case ModeProd:
		if w == nil {
			w = os.Stdout
		}
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		if w == nil {
			w = os.Stderr
		}
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}

// AsyncHandler 把紀錄丟進有界佇列，由背景 goroutine 交給下一層 handler 寫出。
// 佇列滿或已 Close 時直接丟棄並計數。WithAttrs / WithGroup 產生的 handler 共用同一個佇列。
//
// slog.Logger 會忽略 Handle 的錯誤，下一層的 I/O 錯誤在這裡同樣被吞掉。
type AsyncHandler struct {
	next slog.Handler
	q    *queue
}

type queue struct {
	items   chan queued
	done    chan struct{}
	stop    sync.Once
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

type queued struct {
	ctx context.Context
	rec slog.Record
	h   slog.Handler
}

// NewAsyncHandler 啟動背景寫出；buf <= 0 時為 1024。
func NewAsyncHandler(next slog.Handler, buf int) *AsyncHandler {
	if next == nil {
		next = buildHandler(ModeDev, nil)
	}
	if buf <= 0 {
		buf = 1024
	}
	q := &queue{items: make(chan queued, buf), done: make(chan struct{})}
	q.wg.Add(1)
	go q.loop()
	return &AsyncHandler{next: next, q: q}
}

func (q *queue) loop() {
	defer q.wg.Done()
	for {
		select {
		case it := <-q.items:
			it.write()
		case <-q.done:
			q.drain()
			return
		}
	}
}

func (q *queue) drain() {
	for {
		select {
		case it := <-q.items:
			it.write()
		default:
			return
		}
	}
}

func (it queued) write() {
	if it.h != nil {
		_ = it.h.Handle(it.ctx, it.rec)
	}
}

// Ready 是否由 NewAsyncHandler 建立（零值不可用）
func (h *AsyncHandler) Ready() bool {
	return h != nil && h.q != nil
}

// Dropped 因佇列滿或已關閉而丟棄的筆數
func (h *AsyncHandler) Dropped() uint64 {
	if !h.Ready() {
		return 0
	}
	return h.q.dropped.Load()
}

// Close 停止收件並把佇列內剩下的紀錄寫完。可重複呼叫。
func (h *AsyncHandler) Close() {
	if !h.Ready() {
		return
	}
	h.q.stop.Do(func() { close(h.q.done) })
	h.q.wg.Wait()
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Ready() {
		return nil
	}
	select {
	case <-h.q.done:
		h.q.dropped.Add(1)
		return nil
	default:
	}
	// Record 內含共用的 attr slice，跨 goroutine 前要 Clone
	select {
	case h.q.items <- queued{ctx: ctx, rec: r.Clone(), h: h.next}:
	default:
		h.q.dropped.Add(1)
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), q: h.q}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), q: h.q}
}
