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

package spec

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/zintix-labs/crashlab/errs"
	"gopkg.in/yaml.v3"
)

// 預設模擬參數
const (
	DefaultSeed int64   = 123
	DefaultBet  float64 = 1.0
	DefaultRNG          = "pcg64"
)

// DefaultTrialCounts 預設的局數列表
var DefaultTrialCounts = []int{10_000, 100_000, 1_000_000}

// SimSetting 一次模擬請求的全域參數（不含設定表本身）。
//
// 可由 YAML / JSON 檔載入，未出現的欄位保留預設值。
type SimSetting struct {
	TrialCounts []int   `yaml:"trial_counts" json:"trial_counts"`
	Seed        int64   `yaml:"seed"         json:"seed"`
	Bet         float64 `yaml:"bet"          json:"bet"`
	RNG         string  `yaml:"rng"          json:"rng"`
	Analytical  bool    `yaml:"analytical"   json:"analytical"`
}

// DefaultSimSetting 回傳預設參數（trial counts 為獨立拷貝）。
func DefaultSimSetting() SimSetting {
	return SimSetting{
		TrialCounts: append([]int(nil), DefaultTrialCounts...),
		Seed:        DefaultSeed,
		Bet:         DefaultBet,
		RNG:         DefaultRNG,
	}
}

// GetSimSettingByYAML 以預設值為底讀取 YAML，並執行基本檢查後回傳。
func GetSimSettingByYAML(data []byte) (*SimSetting, error) {
	s := DefaultSimSetting()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errs.Wrap(err, "failed to unmarshal yaml sim setting")
	}
	if err := s.Valid(); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSimSettingByJSON 以預設值為底讀取 JSON，並執行基本檢查後回傳。
func GetSimSettingByJSON(data []byte) (*SimSetting, error) {
	s := DefaultSimSetting()
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errs.Wrap(err, "failed to unmarshal json sim setting")
	}
	if err := s.Valid(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Valid 檢查 trial counts 與 bet。rng 名稱由 core.FactoryByName 檢查。
func (s *SimSetting) Valid() error {
	if err := ValidTrialCounts(s.TrialCounts); err != nil {
		return err
	}
	return ValidBet(s.Bet)
}

// ValidTrialCounts：非空、皆為正整數且互不重複。
func ValidTrialCounts(tc []int) error {
	if len(tc) == 0 {
		return errs.InvalidParameterf("trial counts must not be empty")
	}
	seen := make(map[int]struct{}, len(tc))
	for _, n := range tc {
		if n < 1 {
			return errs.InvalidParameterf("trial count must be >= 1, got %d", n)
		}
		if _, ok := seen[n]; ok {
			return errs.InvalidParameterf("duplicate trial count: %d", n)
		}
		seen[n] = struct{}{}
	}
	return nil
}

// ValidBet：有限且大於 0。
func ValidBet(bet float64) error {
	if !(bet > 0) || math.IsInf(bet, 0) {
		return errs.InvalidParameterf("bet must be > 0, got %v", bet)
	}
	return nil
}

// ParseTrialCounts 解析 "10000,100000 1_000_000" 這類列表（逗號或空白分隔，允許底線）。
func ParseTrialCounts(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == ';'
	})
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseInt(strings.ReplaceAll(f, "_", ""), 10, 64)
		if err != nil || n > math.MaxInt32 {
			return nil, errs.InvalidParameterf("invalid trial count: %q", f)
		}
		out = append(out, int(n))
	}
	if err := ValidTrialCounts(out); err != nil {
		return nil, err
	}
	return out, nil
}
