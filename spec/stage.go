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

// Package spec 定義 crashlab 的輸入模型：關卡設定（StageConfig）、
// 與來源格式無關的設定表（ConfigTable），以及模擬參數（SimSetting）。
package spec

// 必要欄位名稱。大小寫敏感，是與既有設定檔往返相容的合約。
const (
	ColStage      = "Stage"
	ColMultiplier = "Multiplier"
	ColPBlack     = "P_black"
)

// RequiredColumns 依固定順序列出必要欄位（缺欄錯誤也依此順序回報）。
var RequiredColumns = []string{ColStage, ColMultiplier, ColPBlack}

// StageConfig 一列關卡設定，讀入後不再變更。
type StageConfig struct {
	Stage      int     `json:"Stage"      yaml:"Stage"`
	Multiplier float64 `json:"Multiplier" yaml:"Multiplier"`
	PBlack     float64 `json:"P_black"    yaml:"P_black"`
}

// ExpectedRTP 封閉解 RTP = Multiplier × P_black，與取樣無關。
func (s StageConfig) ExpectedRTP() float64 {
	return s.Multiplier * s.PBlack
}
