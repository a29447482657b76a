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

package catalog

import (
	"os"

	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/spec"
	"github.com/zintix-labs/crashlab/tableio"
)

// Source 一張待模擬的設定表與它的結果表名
type Source struct {
	ResultName string
	Table      *spec.ConfigTable
}

// Load 依路徑型態載入設定表：
//   - 目錄：以 Scan(os.DirFS(path)) 讀入最上層的 CSV / 活頁簿，子目錄與 ~$ 鎖定檔略過，
//     結果表名見 Entry.ResultName。
//   - .xlsx / .xlsm：所有 config 工作表，結果表名 Sim_<Config_ 之後的部分>。
//   - .xls：不支援，回傳 InvalidParameter。
//   - 其它：視為單一 CSV，結果表名固定為 Sim。
func Load(p string) ([]Source, error) {
	st, err := os.Stat(p)
	if err != nil {
		return nil, errs.Warnf("can not open input: %v", err)
	}
	if st.IsDir() {
		c, err := Scan(os.DirFS(p))
		if err != nil {
			return nil, err
		}
		out := make([]Source, 0, c.Len())
		for _, e := range c.entries {
			out = append(out, Source{ResultName: e.ResultName(), Table: cloneTable(c.byName[e.Name])})
		}
		return out, nil
	}

	if tableio.IsLegacyXLS(p) {
		return nil, tableio.ErrLegacyXLS(p)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, errs.Warnf("can not open input: %v", err)
	}
	defer f.Close()

	if tableio.IsWorkbook(p) {
		ts, err := tableio.ReadXLSX(f)
		if err != nil {
			return nil, errs.WrapWithExtra(err, "can not read workbook", "file="+p)
		}
		out := make([]Source, len(ts))
		for i, t := range ts {
			out[i] = Source{ResultName: tableio.ResultName(t.Name), Table: t}
		}
		return out, nil
	}
	t, err := tableio.ReadCSV(f, "Sim")
	if err != nil {
		return nil, err
	}
	return []Source{{ResultName: "Sim", Table: t}}, nil
}
