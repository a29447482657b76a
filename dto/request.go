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

package dto

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/spec"
	"github.com/zintix-labs/crashlab/stats"
)

// MaxBody POST JSON body 上限
const MaxBody = 4 << 20

// SimRequest 一次模擬請求。
//
// 設定表來源二擇一：Tables 直接帶表，或 Presets 指定內建表名；兩者皆空時使用全部內建表。
// 參數欄位省略時套用伺服器預設。
type SimRequest struct {
	Tables      []TableDTO `json:"tables,omitempty"`
	Presets     []string   `json:"presets,omitempty"`
	TrialCounts []int      `json:"trial_counts,omitempty"`
	Seed        *int64     `json:"seed,omitempty"`
	Bet         *float64   `json:"bet,omitempty"`
	RNG         string     `json:"rng,omitempty"`
	Analytical  *bool      `json:"analytical,omitempty"`
}

// TableDTO 請求中的一張設定表。Stages 有值時忽略 Columns / Rows。
//
// Rows 的儲存格可以是數字、字串或 null（null 視為缺值）。
type TableDTO struct {
	Name    string             `json:"name"`
	Columns []string           `json:"columns,omitempty"`
	Rows    [][]any            `json:"rows,omitempty"`
	Stages  []spec.StageConfig `json:"stages,omitempty"`
}

// DecodeSimRequest 會把 HTTP 請求解碼成 SimRequest。
//
// 支援：
//   - GET：從 query string 讀取參數（rounds/seed/bet/rng/analytical/preset，preset 可重複）。
//     GET 只能指定內建表，自帶設定表請用 POST。
//   - POST：從 JSON body 反序列化，開啟 DisallowUnknownFields()，數字以 json.Number 保留原文。
func DecodeSimRequest(r *http.Request) (*SimRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}
	switch r.Method {
	case http.MethodGet:
		return fromValues(r.URL.Query())
	case http.MethodPost:
		req := new(SimRequest)
		if err := decodeJSON(r.Body, req); err != nil {
			return nil, err
		}
		return req, nil
	default:
		return nil, errs.NewWarn("method not allowed")
	}
}

// DecodeSimForm 從已解析的表單（multipart 上傳）讀取參數，欄位名稱同 GET。
func DecodeSimForm(form url.Values) (*SimRequest, error) {
	return fromValues(form)
}

// DecodeJSON 以 SimRequest 相同的規則解 JSON body 到 v
func DecodeJSON(r *http.Request, v any) error {
	if r == nil {
		return errs.NewWarn("nil request")
	}
	if r.Method != http.MethodPost {
		return errs.NewWarn("method not allowed")
	}
	return decodeJSON(r.Body, v)
}

func decodeJSON(body io.Reader, v any) error {
	// 防止 body 過大
	dec := json.NewDecoder(io.LimitReader(body, MaxBody))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return errs.NewWarn(fmt.Sprintf("invalid json: %v", err))
	}
	return nil
}

func fromValues(q url.Values) (*SimRequest, error) {
	req := new(SimRequest)
	if s := q.Get("rounds"); s != "" {
		tc, err := spec.ParseTrialCounts(s)
		if err != nil {
			return nil, err
		}
		req.TrialCounts = tc
	}
	if s := q.Get("seed"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errs.NewWarn(fmt.Sprintf("invalid seed: %v", err))
		}
		req.Seed = &v
	}
	if s := q.Get("bet"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errs.NewWarn(fmt.Sprintf("invalid bet: %v", err))
		}
		req.Bet = &v
	}
	if s := q.Get("analytical"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, errs.NewWarn("invalid analytical value " + err.Error())
		}
		req.Analytical = &v
	}
	req.RNG = q.Get("rng")
	for _, p := range q["preset"] {
		for _, name := range strings.Split(p, ",") {
			if name = strings.TrimSpace(name); name != "" {
				req.Presets = append(req.Presets, name)
			}
		}
	}
	return req, nil
}

// Setting 以 def 為底套用請求中的參數，並檢查 trial counts 與 bet。
func (sr *SimRequest) Setting(def spec.SimSetting) (spec.SimSetting, error) {
	s := def
	s.TrialCounts = append([]int(nil), def.TrialCounts...)
	if len(sr.TrialCounts) > 0 {
		s.TrialCounts = append([]int(nil), sr.TrialCounts...)
	}
	if sr.Seed != nil {
		s.Seed = *sr.Seed
	}
	if sr.Bet != nil {
		s.Bet = *sr.Bet
	}
	if sr.RNG != "" {
		s.RNG = sr.RNG
	}
	if sr.Analytical != nil {
		s.Analytical = *sr.Analytical
	}
	if err := s.Valid(); err != nil {
		return spec.SimSetting{}, err
	}
	return s, nil
}

// ToTables 把請求中的表轉成 ConfigTable；未命名的表依序命名為 Config_1、Config_2…
func (sr *SimRequest) ToTables() ([]*spec.ConfigTable, error) {
	out := make([]*spec.ConfigTable, 0, len(sr.Tables))
	for i, t := range sr.Tables {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			name = "Config_" + strconv.Itoa(i+1)
		}
		if len(t.Stages) > 0 {
			out = append(out, spec.TableFromStages(name, t.Stages))
			continue
		}
		ct := &spec.ConfigTable{
			Name:    name,
			Columns: append([]string(nil), t.Columns...),
			Rows:    make([][]string, len(t.Rows)),
		}
		for ri, row := range t.Rows {
			cells := make([]string, len(row))
			for ci, v := range row {
				s, err := cellString(v)
				if err != nil {
					e := errs.InvalidConfigValuef(columnAt(t.Columns, ci), "unsupported cell at row %d: %v", ri+1, err)
					e.Extra = "table=" + name
					return nil, e
				}
				cells[ci] = s
			}
			ct.Rows[ri] = cells
		}
		out = append(out, ct)
	}
	return out, nil
}

func cellString(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case int:
		return strconv.Itoa(x), nil
	default:
		return "", fmt.Errorf("type %T", v)
	}
}

func columnAt(cols []string, i int) string {
	if i < len(cols) {
		return cols[i]
	}
	return "#" + strconv.Itoa(i+1)
}

// EVRequest 牌組 EV 報表請求；GlobalScale 省略時為 1。
type EVRequest struct {
	Decks       []stats.Deck `json:"decks"`
	GlobalScale *float64     `json:"global_scale,omitempty"`
}

// Scale 回傳實際使用的全域倍率
func (er *EVRequest) Scale() float64 {
	if er.GlobalScale == nil {
		return 1
	}
	return *er.GlobalScale
}

// FitRequest 反推全域倍率的請求
type FitRequest struct {
	Decks  []stats.Deck `json:"decks"`
	Target float64      `json:"target"`
}
