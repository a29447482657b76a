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
// ops 是取代 Makefile 的小工具：go run ./scripts <task>
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ANSI 顏色代碼 (Windows 10+ 的 cmd/powershell 皆支援)
const (
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorReset  = "\033[0m"
)

func printColor(color, msg string) { fmt.Printf("%s%s%s\n", color, msg, colorReset) }

// task 一個可執行的工作：依序執行 steps，filter 不為 nil 時逐行過濾最後一步的輸出
type task struct {
	about  string
	steps  [][]string
	filter func(line string) (string, bool)
}

var tasks = map[string]task{
	"test": {
		about:  "go test ./... -cover -count=1, only ok/FAIL lines",
		steps:  [][]string{{"go", "clean", "-testcache"}, {"go", "test", "./...", "-cover", "-count=1"}},
		filter: summaryOnly,
	},
	"test-all": {
		about: "go test ./... -cover",
		steps: [][]string{{"go", "clean", "-testcache"}, {"go", "test", "./...", "-cover"}},
	},
	"test-detail": {
		about:  "go test ./... -v -count=1 without [no test files]",
		steps:  [][]string{{"go", "clean", "-testcache"}, {"go", "test", "./...", "-v", "-count=1"}},
		filter: dropNoTestFiles,
	},
	"demo": {
		about: "simulate the embedded sample tables into build/SimResults.xlsx",
		steps: [][]string{{"go", "run", "./cmd/run", "-i", "demo/demo_configs", "-o", "build/SimResults.xlsx", "-pb"}},
	},
	"pgo": {
		about: "cpu profile of the sample run, written to build/profiling/cpu.pprof",
		steps: [][]string{{"go", "run", "./cmd/run", "-i", "demo/demo_configs", "-o", "build/SimResults.xlsx", "-q", "-p", "cpu"}},
	},
	"serve": {
		about: "start the lab server on :5808",
		steps: [][]string{{"go", "run", "./cmd/svr"}},
	},
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts [task]")
		for name, t := range tasks {
			fmt.Printf("  %-12s %s\n", name, t.about)
		}
		os.Exit(1)
	}
	name := os.Args[1]
	t, ok := tasks[name]
	if !ok {
		printColor(colorYellow, "Unknown task: "+name)
		os.Exit(1)
	}
	printColor(colorGreen, "running "+name)
	if err := t.run(); err != nil {
		printColor(colorRed, fmt.Sprintf("\n%s finished with errors: %v", name, err))
		os.Exit(1)
	}
}

func (t task) run() error {
	for i, step := range t.steps {
		cmd := exec.Command(step[0], step[1:]...)
		last := i == len(t.steps)-1
		if !last || t.filter == nil {
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			if err := cmd.Run(); err != nil {
				return err
			}
			continue
		}
		// 對應 Shell 的 "2>&1 | grep"：編譯錯誤多半在 stderr，一起過濾
		pr, pw := io.Pipe()
		cmd.Stdout = pw
		cmd.Stderr = pw
		if err := cmd.Start(); err != nil {
			return err
		}
		done := make(chan error, 1)
		go func() {
			err := cmd.Wait()
			pw.Close()
			done <- err
		}()
		scanner := bufio.NewScanner(pr)
		for scanner.Scan() {
			if line, keep := t.filter(scanner.Text()); keep {
				colorize(line)
			}
		}
		if err := <-done; err != nil {
			return err
		}
	}
	return nil
}

func colorize(line string) {
	switch {
	case strings.HasPrefix(line, "ok"):
		printColor(colorGreen, line)
	case strings.HasPrefix(line, "FAIL"):
		printColor(colorRed, line)
	default:
		fmt.Println(line)
	}
}

// summaryOnly 等同 grep -E '^(ok|FAIL)'，另外保留 build / setup failed 讓錯誤看得到
func summaryOnly(line string) (string, bool) {
	keep := strings.HasPrefix(line, "ok") || strings.HasPrefix(line, "FAIL") ||
		strings.Contains(line, "build failed") || strings.Contains(line, "setup failed")
	return line, keep
}

// dropNoTestFiles 等同 grep -v '\[no test files\]'
func dropNoTestFiles(line string) (string, bool) {
	return line, !strings.Contains(line, "[no test files]")
}
