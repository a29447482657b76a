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
	"math"
	"strconv"
	"strings"

	"github.com/zintix-labs/crashlab/errs"
)

// ConfigTable 是與來源格式無關的設定表：欄位名稱 + 以字串保存的儲存格。
//
// CSV、XLSX、HTTP JSON 等來源都先轉成 ConfigTable，再由 Stages() 統一做
// 缺欄檢查、缺值列過濾與型別轉換。額外欄位會被忽略。
type ConfigTable struct {
	Name    string     `json:"name"    yaml:"name"`
	Columns []string   `json:"columns" yaml:"columns"`
	Rows    [][]string `json:"rows"    yaml:"rows"`
}

// TableFromStages 把已解析的關卡轉回 ConfigTable（只含必要欄位）。
func TableFromStages(name string, stages []StageConfig) *ConfigTable {
	t := &ConfigTable{
		Name:    name,
		Columns: append([]string(nil), RequiredColumns...),
		Rows:    make([][]string, 0, len(stages)),
	}
	for _, s := range stages {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(s.Stage),
			strconv.FormatFloat(s.Multiplier, 'g', -1, 64),
			strconv.FormatFloat(s.PBlack, 'g', -1, 64),
		})
	}
	return t
}

// Missing 依 RequiredColumns 順序回傳缺少的必要欄位；全部存在時回傳 nil。
func (t *ConfigTable) Missing() []string {
	idx := t.index()
	var miss []string
	for _, c := range RequiredColumns {
		if _, ok := idx[c]; !ok {
			miss = append(miss, c)
		}
	}
	return miss
}

// Stages 把設定表轉成關卡列表。
//
// 處理順序：
//  1. 表層級缺欄檢查：缺少任一必要欄位回傳 MissingColumns（列出所有缺欄），不處理任何列。
//  2. 任一必要欄位為缺值的列直接略過（不視為錯誤）。
//  3. Stage 轉 int（接受 3 或 3.0，不接受 3.5）、Multiplier / P_black 轉 float64；
//     失敗回傳 InvalidConfigValue，訊息包含表名、資料列序號（1-based）與欄位。
//
// 注意：非整數關卡不做截斷，3.5 會被拒絕而不是當成 3。
func (t *ConfigTable) Stages() ([]StageConfig, error) {
	if miss := t.Missing(); len(miss) > 0 {
		return nil, errs.MissingColumns(t.Name, miss)
	}
	idx := t.index()
	iStage, iMult, iP := idx[ColStage], idx[ColMultiplier], idx[ColPBlack]

	out := make([]StageConfig, 0, len(t.Rows))
	for r, row := range t.Rows {
		rawStage, rawMult, rawP := cell(row, iStage), cell(row, iMult), cell(row, iP)
		if IsMissing(rawStage) || IsMissing(rawMult) || IsMissing(rawP) {
			continue
		}
		stage, err := parseStage(rawStage)
		if err != nil {
			return nil, t.invalid(ColStage, r, rawStage)
		}
		mult, err := parseReal(rawMult)
		if err != nil {
			return nil, t.invalid(ColMultiplier, r, rawMult)
		}
		p, err := parseReal(rawP)
		if err != nil {
			return nil, t.invalid(ColPBlack, r, rawP)
		}
		out = append(out, StageConfig{Stage: stage, Multiplier: mult, PBlack: p})
	}
	return out, nil
}

// index 欄位名稱 -> 第一次出現的位置。名稱前後空白不計。
func (t *ConfigTable) index() map[string]int {
	idx := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		c = strings.TrimSpace(c)
		if _, ok := idx[c]; !ok {
			idx[c] = i
		}
	}
	return idx
}

func (t *ConfigTable) invalid(field string, row int, raw string) error {
	e := errs.InvalidConfigValuef(field, "cannot convert %q at row %d", raw, row+1)
	if t.Name != "" {
		e.Extra = "table=" + t.Name
	}
	return e
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// 試算表 / CSV 常見的缺值寫法（比對前會 trim 並轉小寫）。
var missingTokens = map[string]struct{}{
	"":     {},
	"na":   {},
	"n/a":  {},
	"nan":  {},
	"null": {},
	"none": {},
	"#n/a": {},
	"<na>": {},
}

// IsMissing 判斷儲存格是否為缺值。
func IsMissing(s string) bool {
	_, ok := missingTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

func parseStage(s string) (int, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, strconv.ErrRange
	}
	return int(f), nil
}

func parseReal(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
