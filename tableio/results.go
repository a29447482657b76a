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

package tableio

import (
	"strconv"
	"strings"

	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/stats"
)

// parseResultRows 把「表頭 + 資料列」還原成結果表，欄位以名稱對應，順序不拘。
func parseResultRows(name string, rows [][]string) (stats.ResultTable, error) {
	if len(rows) == 0 {
		return stats.ResultTable{}, nil
	}
	idx := make(map[string]int, len(rows[0]))
	for i, c := range rows[0] {
		idx[strings.TrimSpace(c)] = i
	}
	var miss []string
	for _, c := range stats.ResultColumns {
		if _, ok := idx[c]; !ok {
			miss = append(miss, c)
		}
	}
	if len(miss) > 0 {
		return nil, errs.MissingColumns(name, miss)
	}

	out := make(stats.ResultTable, 0, len(rows)-1)
	for ri, row := range rows[1:] {
		get := func(col string) string {
			i := idx[col]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		var (
			r   stats.StageResult
			err error
		)
		ints := []struct {
			col string
			dst *int
		}{{"Stage", &r.Stage}, {"Rounds", &r.Rounds}}
		for _, f := range ints {
			if *f.dst, err = strconv.Atoi(get(f.col)); err != nil {
				return nil, badResult(name, f.col, ri)
			}
		}
		floats := []struct {
			col string
			dst *float64
		}{
			{"Multiplier", &r.Multiplier},
			{"P_black", &r.PBlack},
			{"Expected_RTP", &r.ExpectedRTP},
			{"Sim_RTP", &r.SimRTP},
			{"Sim_StdDev", &r.SimStdDev},
			{"Success_Rate", &r.SuccessRate},
			{"CI_low", &r.CILow},
			{"CI_high", &r.CIHigh},
		}
		for _, f := range floats {
			if *f.dst, err = strconv.ParseFloat(get(f.col), 64); err != nil {
				return nil, badResult(name, f.col, ri)
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func badResult(table, field string, row int) error {
	e := errs.InvalidConfigValuef(field, "bad result value at row %d", row+1)
	e.Extra = "table=" + table
	return e
}
