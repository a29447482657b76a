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
package svrcfg

import (
	"log/slog"

	"github.com/zintix-labs/crashlab/catalog"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/server/logger"
	"github.com/zintix-labs/crashlab/spec"
)

// DefaultMaxTrials 單一 trial count 的上限
const DefaultMaxTrials = 5_000_000

type SvrCfg struct {
	Log *slog.Logger
	// Addr 監聽位址，空字串用 netsvr 預設
	Addr string
	// Presets 內建設定表，GET /v1/sim 未帶 preset 時全部跑
	Presets *catalog.Catalog
	// Defaults 請求未帶參數時的預設值
	Defaults spec.SimSetting
	// MaxTrials 每個 trial count 的上限（解析模式不受限），<= 0 用 DefaultMaxTrials
	MaxTrials int
	// CORSOrigins 允許的跨域來源，空表示不掛 CORS
	CORSOrigins []string
}

func (sc *SvrCfg) Vaild() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		// 保持安靜、合法
		sc.Log, _ = logger.NewAsync(1024, logger.ModeDev)
	}
	if sc.Presets == nil {
		return errs.NewFatal("presets catalog is required")
	}
	if len(sc.Defaults.TrialCounts) == 0 {
		sc.Defaults = spec.DefaultSimSetting()
	}
	if err := sc.Defaults.Valid(); err != nil {
		return errs.Wrap(err, "invalid default sim setting")
	}
	if sc.MaxTrials <= 0 {
		sc.MaxTrials = DefaultMaxTrials
	}
	return nil
}
