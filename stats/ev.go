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

	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/spec"
)

// 全域倍率調整的上下限
const (
	MinScale = 0.1
	MaxScale = 3.0
)

// Deck 一副牌組：一組關卡，加上權重與牌組內倍率。
type Deck struct {
	Name       string             `json:"name"        yaml:"name"`
	Weight     float64            `json:"weight"      yaml:"weight"`
	LocalScale float64            `json:"local_scale" yaml:"local_scale"`
	Stages     []spec.StageConfig `json:"stages"      yaml:"stages"`
}

// DeckReport 每副牌組的 EV 與加權後的整體 EV
type DeckReport struct {
	GlobalScale float64   `json:"global_scale" yaml:"global_scale"`
	Decks       []DeckRow `json:"decks"        yaml:"decks"`
	Overall     float64   `json:"overall_ev"   yaml:"overall_ev"`
}

type DeckRow struct {
	Name   string  `json:"name"   yaml:"name"`
	Weight float64 `json:"weight" yaml:"weight"`
	EV     float64 `json:"ev"     yaml:"ev"`
}

// DeckEV 關卡 EV（P_black × Multiplier × LocalScale × globalScale）的平均；沒有關卡時為 0。
func DeckEV(d Deck, globalScale float64) float64 {
	if len(d.Stages) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range d.Stages {
		sum += s.PBlack * s.Multiplier * d.LocalScale * globalScale
	}
	return sum / float64(len(d.Stages))
}

// OverallEV 依權重加權的牌組 EV。負權重視為 0；總權重為 0 時回傳 0。
func OverallEV(decks []Deck, globalScale float64) float64 {
	total := 0.0
	acc := 0.0
	for _, d := range decks {
		w := math.Max(0, d.Weight)
		total += w
		acc += w * DeckEV(d, globalScale)
	}
	if total == 0 {
		return 0
	}
	return acc / total
}

// Report 一次算完所有牌組
func Report(decks []Deck, globalScale float64) DeckReport {
	rows := make([]DeckRow, len(decks))
	for i, d := range decks {
		rows[i] = DeckRow{Name: d.Name, Weight: d.Weight, EV: DeckEV(d, globalScale)}
	}
	return DeckReport{GlobalScale: globalScale, Decks: rows, Overall: OverallEV(decks, globalScale)}
}

// FitScale 找出讓整體 EV 等於 target 的全域倍率，結果夾在 [MinScale, MaxScale]。
func FitScale(decks []Deck, target float64) (float64, error) {
	if math.IsNaN(target) || math.IsInf(target, 0) {
		return 0, errs.InvalidParameterf("target must be finite, got %v", target)
	}
	base := OverallEV(decks, 1)
	if !(base > 0) {
		return 0, errs.InvalidParameterf("base ev must be > 0 to fit a scale, got %v", base)
	}
	return min(max(target/base, MinScale), MaxScale), nil
}
