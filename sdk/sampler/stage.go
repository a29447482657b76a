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

// Package sampler 實作單一關卡（stage）的 Monte Carlo 取樣。
//
// 單一關卡模型：每一局以機率 p 成功，成功時派彩 multiplier × bet，失敗派彩 0。
// 取樣器是純函數：輸入相同（含 seed 與演算法）輸出就相同，不碰任何共享狀態。
package sampler

import (
	"math"

	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/sdk/core"
)

// Outcome 單一關卡取樣的統計結果（皆以每單位押注表示）。
type Outcome struct {
	RTP         float64 // mean(payout) / bet
	StdDev      float64 // 派彩的樣本標準差（N-1）/ bet；trials == 1 時為 0
	SuccessRate float64 // 成功局數 / 總局數
	Successes   int     // 成功局數
	Trials      int     // 總局數
}

// Validate 檢查取樣參數，任一越界回傳 InvalidParameter。
func Validate(multiplier, pBlack float64, trials int, bet float64) error {
	if trials < 1 {
		return errs.InvalidParameterf("trials must be >= 1, got %d", trials)
	}
	if math.IsNaN(pBlack) || pBlack < 0 || pBlack > 1 {
		return errs.InvalidParameterf("p_black must be in [0,1], got %v", pBlack)
	}
	if !(multiplier > 0) || math.IsInf(multiplier, 0) {
		return errs.InvalidParameterf("multiplier must be > 0, got %v", multiplier)
	}
	if !(bet > 0) || math.IsInf(bet, 0) {
		return errs.InvalidParameterf("bet must be > 0, got %v", bet)
	}
	return nil
}

// Stage 以呼叫端提供的亂數來源跑 trials 局。
//
// 每局做一次 c.Hit(pBlack)：[0,1) 均勻亂數嚴格小於 pBlack 即成功。
// c 的所有權屬於呼叫端；要求可重現時請使用 StageWithSeed。
func Stage(c *core.Core, multiplier, pBlack float64, trials int, bet float64) (Outcome, error) {
	if c == nil || c.PRNG == nil {
		return Outcome{}, errs.InvalidParameterf("nil rng")
	}
	if err := Validate(multiplier, pBlack, trials, bet); err != nil {
		return Outcome{}, err
	}
	hits := 0
	for range trials {
		if c.Hit(pBlack) {
			hits++
		}
	}
	return summarize(multiplier, bet, trials, hits), nil
}

// StageWithSeed 以 seed 建立一顆只屬於本次呼叫的 PRNG 後取樣。
func StageWithSeed(cf core.PRNGFactory, multiplier, pBlack float64, trials int, bet float64, seed int64) (Outcome, error) {
	if err := Validate(multiplier, pBlack, trials, bet); err != nil {
		return Outcome{}, err
	}
	return Stage(core.New(cf.New(seed)), multiplier, pBlack, trials, bet)
}

// Analytical 回傳封閉解（不取樣）：RTP = m·p，StdDev = m·sqrt(p(1-p))，SuccessRate = p。
//
// trials 只用於參數檢查與 Successes 的期望值，不影響其它欄位。
func Analytical(multiplier, pBlack float64, trials int, bet float64) (Outcome, error) {
	if err := Validate(multiplier, pBlack, trials, bet); err != nil {
		return Outcome{}, err
	}
	return Outcome{
		RTP:         multiplier * pBlack,
		StdDev:      multiplier * math.Sqrt(pBlack*(1-pBlack)),
		SuccessRate: pBlack,
		Successes:   int(math.Round(pBlack * float64(trials))),
		Trials:      trials,
	}, nil
}

// summarize 由成功局數還原派彩序列的統計量。
//
// 派彩只有 0 與 x = m·bet 兩種值，所以
//
//	mean = x·k/n
//	var  = x²·k·(n-k) / (n·(n-1))
//
// 與逐筆累加平方和相同，但不會有大 n 下的抵銷誤差。
func summarize(multiplier, bet float64, trials, hits int) Outcome {
	n := float64(trials)
	k := float64(hits)
	payout := multiplier * bet
	mean := payout * k / n

	sd := 0.0
	if trials > 1 {
		variance := payout * payout * k * (n - k) / (n * (n - 1))
		sd = math.Sqrt(max(variance, 0))
	}
	return Outcome{
		RTP:         mean / bet,
		StdDev:      sd / bet,
		SuccessRate: k / n,
		Successes:   hits,
		Trials:      trials,
	}
}
