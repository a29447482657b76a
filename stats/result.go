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

// Package stats 負責模擬結果的資料模型、統計推論與輸出。
package stats

import (
	"math"
	"sort"

	"github.com/zintix-labs/crashlab/sdk/sampler"
	"github.com/zintix-labs/crashlab/spec"
)

// Z95 常態近似 95% 信賴區間的 z 值
const Z95 = 1.96

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo" yaml:"Lo"`
	Hi float64 `json:"Hi" yaml:"Hi"`
}

// ResultColumns 輸出欄位順序（CSV / XLSX 表頭），與既有匯出檔相容。
var ResultColumns = []string{
	"Stage", "Multiplier", "P_black", "Expected_RTP", "Rounds",
	"Sim_RTP", "Sim_StdDev", "Success_Rate", "CI_low", "CI_high",
}

// StageResult 每個 (關卡 × 局數) 配對一筆，建立後不再變更。
type StageResult struct {
	Stage       int     `json:"Stage"        yaml:"Stage"`
	Multiplier  float64 `json:"Multiplier"   yaml:"Multiplier"`
	PBlack      float64 `json:"P_black"      yaml:"P_black"`
	ExpectedRTP float64 `json:"Expected_RTP" yaml:"Expected_RTP"`
	Rounds      int     `json:"Rounds"       yaml:"Rounds"`
	SimRTP      float64 `json:"Sim_RTP"      yaml:"Sim_RTP"`
	SimStdDev   float64 `json:"Sim_StdDev"   yaml:"Sim_StdDev"`
	SuccessRate float64 `json:"Success_Rate" yaml:"Success_Rate"`
	CILow       float64 `json:"CI_low"       yaml:"CI_low"`
	CIHigh      float64 `json:"CI_high"      yaml:"CI_high"`
	successes   int
}

// NewStageResult 由關卡設定與取樣結果組出一筆結果。
//
// CI = rtp ± 1.96·stdev/sqrt(rounds)，不截斷到 0（與既有報表一致）。
func NewStageResult(cfg spec.StageConfig, out sampler.Outcome) StageResult {
	half := 0.0
	if out.Trials > 0 {
		half = Z95 * out.StdDev / math.Sqrt(float64(out.Trials))
	}
	return StageResult{
		Stage:       cfg.Stage,
		Multiplier:  cfg.Multiplier,
		PBlack:      cfg.PBlack,
		ExpectedRTP: cfg.ExpectedRTP(),
		Rounds:      out.Trials,
		SimRTP:      out.RTP,
		SimStdDev:   out.StdDev,
		SuccessRate: out.SuccessRate,
		CILow:       out.RTP - half,
		CIHigh:      out.RTP + half,
		successes:   out.Successes,
	}
}

// RtpCI 回傳 [CI_low, CI_high]
func (r StageResult) RtpCI() CI {
	return CI{Lo: r.CILow, Hi: r.CIHigh}
}

// Successes 回傳成功局數；由檔案讀回的結果以 Success_Rate × Rounds 還原。
func (r StageResult) Successes() int {
	if r.successes > 0 || r.SuccessRate == 0 {
		return r.successes
	}
	return int(math.Round(r.SuccessRate * float64(r.Rounds)))
}

// ResultTable 依 (Rounds, Stage) 遞增排序的結果表。這個排序是下游（圖表、匯出）依賴的合約。
type ResultTable []StageResult

// Sort 就地穩定排序：先 Rounds 再 Stage。
func (t ResultTable) Sort() {
	sort.SliceStable(t, func(i, j int) bool {
		if t[i].Rounds != t[j].Rounds {
			return t[i].Rounds < t[j].Rounds
		}
		return t[i].Stage < t[j].Stage
	})
}

// IsSorted 檢查排序合約
func (t ResultTable) IsSorted() bool {
	return sort.SliceIsSorted(t, func(i, j int) bool {
		if t[i].Rounds != t[j].Rounds {
			return t[i].Rounds < t[j].Rounds
		}
		return t[i].Stage < t[j].Stage
	})
}

// NamedTable 一張有名字的結果表（例如 Sim_first_attempt）。
type NamedTable struct {
	Name    string      `json:"name"    yaml:"name"`
	Results ResultTable `json:"results" yaml:"results"`
}
