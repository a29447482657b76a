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

package crashlab

import (
	"context"
	"log/slog"

	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/spec"
	"github.com/zintix-labs/crashlab/stats"
)

// Policy 多張設定表時的錯誤處理策略
type Policy int

const (
	// FailFast 第一個錯誤就停止（批次 / CLI）。
	FailFast Policy = iota
	// Isolate 每張表各自記錄錯誤，其它表照常執行（儀表板）。
	Isolate
)

func (p Policy) String() string {
	switch p {
	case FailFast:
		return "fail_fast"
	case Isolate:
		return "isolate"
	default:
		return "unknown"
	}
}

// TableResult 一張設定表的執行結果；Err 非 nil 時 Results 為 nil。
type TableResult struct {
	Name    string
	Results stats.ResultTable
	Err     error
}

// RunAll 依輸入順序逐張執行。
//
// FailFast：遇到第一個錯誤即回傳，已完成的表保留在回傳值中，錯誤附上表名；
// 後續表不執行。Isolate：錯誤記在該表的 TableResult.Err，回傳的 error 只在 ctx 取消時非 nil。
func (s *Simulator) RunAll(ctx context.Context, tables []*spec.ConfigTable, req Request, policy Policy) ([]TableResult, error) {
	out := make([]TableResult, 0, len(tables))
	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return out, errs.Wrap(err, "simulation canceled")
		}
		name := ""
		if t != nil {
			name = t.Name
		}
		res, err := s.Run(ctx, t, req)
		if err != nil {
			err = errs.WrapWithExtra(err, "table failed", "table="+name)
			if policy == FailFast || ctx.Err() != nil {
				out = append(out, TableResult{Name: name, Err: err})
				return out, err
			}
			s.log.Warn("table skipped", slog.String("table", name), slog.Any("err", err))
		}
		out = append(out, TableResult{Name: name, Results: res, Err: err})
	}
	return out, nil
}

// Succeeded 只取出成功的表
func Succeeded(rs []TableResult) []stats.NamedTable {
	out := make([]stats.NamedTable, 0, len(rs))
	for _, r := range rs {
		if r.Err == nil {
			out = append(out, stats.NamedTable{Name: r.Name, Results: r.Results})
		}
	}
	return out
}
