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

package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ============================================================
// ** 結構宣告 **
// ============================================================

// ConvergencePoint 一個局數下，所有關卡 Sim_RTP 的平均（儀表板折線圖的一個點）。
type ConvergencePoint struct {
	Rounds      int     `json:"Rounds"       yaml:"Rounds"`
	MeanSimRTP  float64 `json:"Mean_Sim_RTP" yaml:"Mean_Sim_RTP"`
	MeanExpRTP  float64 `json:"Mean_Exp_RTP" yaml:"Mean_Exp_RTP"`
	StageCount  int     `json:"Stages"       yaml:"Stages"`
	MaxAbsError float64 `json:"Max_Abs_Err"  yaml:"Max_Abs_Err"`
}

// PointStat 點估計 回傳 估計值 以及信賴區間
type PointStat struct {
	Hat float64 `json:"Hat" yaml:"Hat"`
	CI  CI      `json:"CI"  yaml:"CI"`
}

// StageSummary 單筆結果的精確成功率區間
type StageSummary struct {
	Stage   int       `json:"Stage"   yaml:"Stage"`
	Rounds  int       `json:"Rounds"  yaml:"Rounds"`
	Success PointStat `json:"Success" yaml:"Success"`
	// Covered 封閉解 RTP 是否落在常態近似 CI 內
	Covered bool `json:"Covered" yaml:"Covered"`
}

// ============================================================
// ** 對外 **
// ============================================================

// Convergence 依局數分組（遞增），計算各組 Sim_RTP 平均、Expected_RTP 平均與最大絕對誤差。
func Convergence(t ResultTable) []ConvergencePoint {
	groups := make(map[int][]StageResult)
	for _, r := range t {
		groups[r.Rounds] = append(groups[r.Rounds], r)
	}
	rounds := make([]int, 0, len(groups))
	for n := range groups {
		rounds = append(rounds, n)
	}
	sort.Ints(rounds)

	out := make([]ConvergencePoint, 0, len(rounds))
	for _, n := range rounds {
		g := groups[n]
		sim := make([]float64, len(g))
		exp := make([]float64, len(g))
		maxErr := 0.0
		for i, r := range g {
			sim[i] = r.SimRTP
			exp[i] = r.ExpectedRTP
			maxErr = math.Max(maxErr, math.Abs(r.SimRTP-r.ExpectedRTP))
		}
		out = append(out, ConvergencePoint{
			Rounds:      n,
			MeanSimRTP:  stat.Mean(sim, nil),
			MeanExpRTP:  stat.Mean(exp, nil),
			StageCount:  len(g),
			MaxAbsError: maxErr,
		})
	}
	return out
}

// SuccessCI 成功率的 Clopper–Pearson 精確區間。
//
// successRate 會先乘回 trials 取整得到成功局數。trials <= 0 時回傳 [0,1]。
func SuccessCI(successRate float64, trials int, confidence float64) (float64, CI) {
	k := int(math.Round(successRate * float64(trials)))
	k = min(max(k, 0), max(trials, 0))
	return proportionCICP(k, trials, confidence)
}

// Summarize 對結果表每一筆計算 95% 成功率精確區間與覆蓋情形，順序同輸入。
func Summarize(t ResultTable) []StageSummary {
	out := make([]StageSummary, len(t))
	for i, r := range t {
		hat, ci := proportionCICP(r.Successes(), r.Rounds, 0.95)
		out[i] = StageSummary{
			Stage:   r.Stage,
			Rounds:  r.Rounds,
			Success: PointStat{Hat: hat, CI: ci},
			Covered: r.CILow <= r.ExpectedRTP && r.ExpectedRTP <= r.CIHigh,
		}
	}
	return out
}

// ============================================================
// ** 內部統計函數 **
// ============================================================

// Clopper–Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n <= 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	// Beta PPF 映射，處理邊界
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}
