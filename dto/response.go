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

// Package dto 定義 HTTP 層的請求解碼與回應結構，與引擎型別之間做轉換。
package dto

import (
	"github.com/zintix-labs/crashlab"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/spec"
	"github.com/zintix-labs/crashlab/stats"
	"github.com/zintix-labs/crashlab/tableio"
)

// SimResponse 一次模擬的回應
type SimResponse struct {
	RunID   string          `json:"run_id"`
	Setting spec.SimSetting `json:"setting"`
	Tables  []TableResponse `json:"tables"`
}

// TableResponse 單張表的結果；失敗時只有 error 相關欄位。
type TableResponse struct {
	Name        string                   `json:"name"`
	ResultName  string                   `json:"result_name"`
	Results     stats.ResultTable        `json:"results,omitempty"`
	Convergence []stats.ConvergencePoint `json:"convergence,omitempty"`
	Summary     []stats.StageSummary     `json:"summary,omitempty"`
	Error       string                   `json:"error,omitempty"`
	Code        string                   `json:"code,omitempty"`
	Fields      []string                 `json:"fields,omitempty"`
}

// NewTableResponse 由執行結果組出回應；成功時附上收斂序列與成功率區間。
func NewTableResponse(tr crashlab.TableResult) TableResponse {
	out := TableResponse{Name: tr.Name, ResultName: tableio.ResultName(tr.Name)}
	if tr.Err != nil {
		out.Error = tr.Err.Error()
		if e, ok := errs.AsErr(tr.Err); ok {
			if c := codeOf(e); c != errs.CodeNone {
				out.Code = c.String()
			}
			out.Fields = fieldsOf(e)
		}
		return out
	}
	out.Results = tr.Results
	out.Convergence = stats.Convergence(tr.Results)
	out.Summary = stats.Summarize(tr.Results)
	return out
}

// NewSimResponse 組出完整回應，表順序同輸入。
func NewSimResponse(runID string, s spec.SimSetting, trs []crashlab.TableResult) SimResponse {
	out := SimResponse{RunID: runID, Setting: s, Tables: make([]TableResponse, len(trs))}
	for i, tr := range trs {
		out.Tables[i] = NewTableResponse(tr)
	}
	return out
}

// NamedTables 取出成功的表並改用結果表名（匯出用）
func (sr SimResponse) NamedTables() []stats.NamedTable {
	out := make([]stats.NamedTable, 0, len(sr.Tables))
	for _, t := range sr.Tables {
		if t.Error == "" {
			out = append(out, stats.NamedTable{Name: t.ResultName, Results: t.Results})
		}
	}
	return out
}

// codeOf 沿 Cause 鏈找第一個帶 Code 的錯誤（RunAll 會再包一層表名）
func codeOf(e *errs.E) errs.Code {
	for e != nil {
		if e.Code != errs.CodeNone {
			return e.Code
		}
		next, ok := errs.AsErr(e.Cause)
		if !ok {
			break
		}
		e = next
	}
	return errs.CodeNone
}

func fieldsOf(e *errs.E) []string {
	for e != nil {
		if len(e.Fields) > 0 {
			return e.Fields
		}
		next, ok := errs.AsErr(e.Cause)
		if !ok {
			break
		}
		e = next
	}
	return nil
}

// Preset 一張內建表
type Preset struct {
	Name   string             `json:"name"`
	Stages []spec.StageConfig `json:"stages,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// PresetsResponse GET /v1/presets 的回應
type PresetsResponse struct {
	Presets []Preset        `json:"presets"`
	Default spec.SimSetting `json:"defaults"`
}

// FitResponse 反推倍率的結果
type FitResponse struct {
	Target   float64 `json:"target"`
	BaseEV   float64 `json:"base_ev"`
	Scale    float64 `json:"scale"`
	FittedEV float64 `json:"fitted_ev"`
}
