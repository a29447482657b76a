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
// Package perf 包一層 pprof，讓 CLI 用一個旗標決定要不要寫出 profile。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/zintix-labs/crashlab/errs"
)

// Dir pprof 檔案寫入路徑
const Dir = "build/profiling"

// Run 依 mode 包住 exe 執行，profile 寫到 dir（空字串用 Dir）。
// exe 的錯誤優先回傳；未知 mode 回 InvalidParameter 且不執行 exe。
//
// Usage like:
//
//	go run ./cmd/run -i configs/ -p cpu
func Run(exe func() error, mode, dir string) error {
	if dir == "" {
		dir = Dir
	}
	switch mode {
	case "":
		return exe()
	case "cpu":
		return cpu(exe, dir)
	case "heap":
		return after(exe, dir, "heap")
	case "allocs":
		return after(exe, dir, "allocs")
	default:
		return errs.InvalidParameterf("unknown pprof mode %q (want cpu|heap|allocs)", mode)
	}
}

// cpu 在 exe 期間收集 CPU profile，也可以拿來做 pgo 的 blueprint。
func cpu(exe func() error, dir string) error {
	f, err := create(dir, "cpu")
	if err != nil {
		return err
	}
	defer f.Close()
	if err := pprof.StartCPUProfile(f); err != nil {
		return errs.Wrap(err, "failed to start cpu profile")
	}
	defer pprof.StopCPUProfile()
	return exe()
}

// after 在 exe 完成後寫出一次快照。
// heap 是 in-use memory（寫出前先 GC 讓快照貼近 live objects）；
// allocs 是累積配置，需搭配 -alloc_space / -alloc_objects 查看。
func after(exe func() error, dir, name string) error {
	if err := exe(); err != nil {
		return err
	}
	if name == "heap" {
		runtime.GC()
	}
	f, err := create(dir, name)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := pprof.Lookup(name).WriteTo(f, 0); err != nil {
		return errs.Wrap(err, "failed to write "+name+" profile")
	}
	return nil
}

func create(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(err, "failed to create profiling dir")
	}
	f, err := os.Create(filepath.Join(dir, name+".pprof"))
	if err != nil {
		return nil, errs.Wrap(err, "failed to create "+name+".pprof")
	}
	return f, nil
}
