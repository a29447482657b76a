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

// Package crashlab 是 CrashGame 多關卡 Monte Carlo 模擬器的組裝與運行入口。
//
// 一次模擬請求由三樣東西組成：
//  1. 設定表（spec.ConfigTable）：每列一個關卡（Stage, Multiplier, P_black）。
//  2. 請求參數（Request）：局數列表、每局押注、母種子。
//  3. 亂數工廠（core.PRNGFactory）：決定母種子產生器與取樣器使用的演算法。
//
// Simulator 依固定順序為每個 (關卡 × 局數) 配對抽出子種子，交給 sdk/sampler 取樣，
// 再由 stats 組成依 (Rounds, Stage) 排序的結果表。相同輸入必得相同輸出。
//
// 設計重點：
//   - crashlab 不處理檔案路徑：CSV / XLSX 的讀寫在 tableio，目錄與內嵌設定在 catalog。
//   - Simulator 不持有跨請求的可變狀態，可被多個 goroutine 共用。
//   - 單次 Run 內部是循序的，配對之間不平行。
package crashlab

import (
	"io"
	"log/slog"

	"github.com/zintix-labs/crashlab/sdk/core"
)

// Simulator 模擬器本體，以 New 建立。
type Simulator struct {
	cf         core.PRNGFactory
	log        *slog.Logger
	progress   bool
	progressW  io.Writer
	analytical bool
}

// Option 設定 Simulator 的選項
type Option func(*Simulator)

// WithFactory 指定亂數工廠；nil 會被忽略（保留預設 PCG64）。
func WithFactory(cf core.PRNGFactory) Option {
	return func(s *Simulator) {
		if cf != nil {
			s.cf = cf
		}
	}
}

// WithLogger 指定 slog logger；預設丟棄所有輸出。
func WithLogger(log *slog.Logger) Option {
	return func(s *Simulator) {
		if log != nil {
			s.log = log
		}
	}
}

// WithProgress 是否在 stderr 顯示進度條（總量 = 所有配對的局數總和）。
func WithProgress(show bool) Option {
	return func(s *Simulator) { s.progress = show }
}

// WithProgressWriter 進度條輸出位置，給測試或自訂終端使用。
func WithProgressWriter(w io.Writer) Option {
	return func(s *Simulator) { s.progressW = w }
}

// WithAnalytical 改用封閉解（不取樣）。子種子照常抽出。
func WithAnalytical(on bool) Option {
	return func(s *Simulator) { s.analytical = on }
}

// New 建立 Simulator
func New(opts ...Option) *Simulator {
	s := &Simulator{
		cf:  core.Default(),
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Factory 回傳目前使用的亂數工廠
func (s *Simulator) Factory() core.PRNGFactory { return s.cf }

// Analytical 是否為封閉解模式
func (s *Simulator) Analytical() bool { return s.analytical }
