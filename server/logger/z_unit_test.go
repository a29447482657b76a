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

package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestParseMode(t *testing.T) {
	cases := []struct {
		in   string
		want LogMode
		ok   bool
	}{
		{"", ModeDev, true},
		{"dev", ModeDev, true},
		{" PROD ", ModeProd, true},
		{"ModeSilence", ModeSilence, true},
		{"verbose", ModeDev, false},
	}
	for _, c := range cases {
		got, ok := ParseMode(c.in)
		if got != c.want || ok != c.ok {
			t.Fatalf("ParseMode(%q) = %v,%v want %v,%v", c.in, got, ok, c.want, c.ok)
		}
	}
	if ModeProd.String() != "prod" || LogMode(9).String() != "unknown" {
		t.Fatal("unexpected mode names")
	}
}

func TestNewWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	NewWriterLogger(ModeProd, &buf).Info("sim.done", slog.Int("rows", 3))
	if !strings.Contains(buf.String(), `"msg":"sim.done"`) || !strings.Contains(buf.String(), `"rows":3`) {
		t.Fatalf("prod output %q", buf.String())
	}
	buf.Reset()
	NewWriterLogger(ModeDev, &buf).Debug("stage", slog.Int("stage", 1))
	if !strings.Contains(buf.String(), "msg=stage") {
		t.Fatalf("dev output %q", buf.String())
	}
	buf.Reset()
	NewWriterLogger(ModeSilence, &buf).Error("nothing")
	if buf.Len() != 0 {
		t.Fatalf("silence should write nothing, got %q", buf.String())
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestAsyncHandlerDrainsOnClose(t *testing.T) {
	out := &syncBuffer{}
	ah := NewAsyncHandler(slog.NewTextHandler(out, nil), 64)
	log := slog.New(ah).With(slog.String("run_id", "r1"))
	for i := 0; i < 10; i++ {
		log.Info("row", slog.Int("i", i))
	}
	ah.Close()
	ah.Close()
	if got := strings.Count(out.String(), "run_id=r1"); got+int(ah.Dropped()) != 10 {
		t.Fatalf("written %d dropped %d", got, ah.Dropped())
	}

	log.Info("after close")
	if strings.Contains(out.String(), "after close") {
		t.Fatal("records after Close should be dropped")
	}
	if ah.Dropped() == 0 {
		t.Fatal("drop counter should move after Close")
	}
}

func TestAsyncHandlerZeroValue(t *testing.T) {
	var ah *AsyncHandler
	if ah.Ready() || ah.Dropped() != 0 {
		t.Fatal("nil handler should not be ready")
	}
	ah.Close()
	if err := (&AsyncHandler{}).Handle(context.Background(), slog.Record{}); err != nil {
		t.Fatal(err)
	}
}
