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
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/stats"
)

// MaxSheetName 試算表工作表名稱上限（以字元計）
const MaxSheetName = 31

const defaultSheet = "Sheet1"

// SheetName 移除工作表名稱不允許的字元（[ ] : * ? / \），去掉頭尾單引號，截到 31 個字元。
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return -1
		}
		return r
	}, name)
	name = strings.Trim(strings.TrimSpace(name), "'")
	if rs := []rune(name); len(rs) > MaxSheetName {
		name = string(rs[:MaxSheetName])
	}
	if name == "" {
		name = "Sim"
	}
	return name
}

// SheetNames 為每張結果表算出工作表名稱。
//
// 截斷後撞名（不分大小寫）視為錯誤，訊息同時列出兩張表，不做自動改名。
func SheetNames(ts []stats.NamedTable) ([]string, error) {
	names := make([]string, len(ts))
	seen := make(map[string]int, len(ts))
	for i, t := range ts {
		n := SheetName(t.Name)
		key := strings.ToLower(n)
		if j, ok := seen[key]; ok {
			return nil, errs.InvalidParameterf("sheet name collision: %q and %q both map to %q", ts[j].Name, t.Name, n)
		}
		seen[key] = i
		names[i] = n
	}
	return names, nil
}

// WriteXLSX 每張結果表一個工作表（表頭 + 資料列，數值保持數字型別）。
//
// 工作表名稱在建立活頁簿前就全部檢查，撞名時 w 不會被寫入任何位元組。
func WriteXLSX(w io.Writer, ts []stats.NamedTable) error {
	if len(ts) == 0 {
		return errs.InvalidParameterf("no result tables to write")
	}
	names, err := SheetNames(ts)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errs.Wrap(err, "can not create header style")
	}
	for i, t := range ts {
		sheet := names[i]
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet); err != nil {
				return errs.Wrap(err, "can not rename sheet")
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return errs.WrapWithExtra(err, "can not create sheet", "sheet="+sheet)
		}
		if err := writeSheet(f, sheet, t.Results); err != nil {
			return errs.WrapWithExtra(err, "can not write sheet", "sheet="+sheet)
		}
		last, _ := excelize.CoordinatesToCellName(len(stats.ResultColumns), 1)
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return errs.Wrap(err, "can not style header")
		}
	}
	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return errs.Wrap(err, "can not write workbook")
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, rs stats.ResultTable) error {
	header := make([]any, len(stats.ResultColumns))
	for i, c := range stats.ResultColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range rs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		vals := r.Values()
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return err
		}
	}
	return nil
}

// ReadResultsXLSX 讀回 WriteXLSX 產生的活頁簿（每張工作表一張結果表）。
func ReadResultsXLSX(r io.Reader) ([]stats.NamedTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errs.Warnf("can not open workbook: %v", err)
	}
	defer f.Close()

	var out []stats.NamedTable
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, errs.WrapWithExtra(err, "can not read sheet", "sheet="+sheet)
		}
		rt, err := parseResultRows(sheet, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, stats.NamedTable{Name: sheet, Results: rt})
	}
	return out, nil
}

// Encode 依格式名稱（xlsx / csv / json / yaml）輸出結果表
func Encode(w io.Writer, format string, ts []stats.NamedTable) error {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "xlsx", "xlsm":
		return WriteXLSX(w, ts)
	case "csv":
		return (&stats.CSVResultRender{}).Write(w, ts)
	case "json":
		return (&stats.JsonResultRender{}).Write(w, ts)
	case "yaml", "yml":
		return (&stats.YAMLResultRender{}).Write(w, ts)
	default:
		return errs.InvalidParameterf("unsupported output format: %q (want xlsx, csv, json, yaml)", format)
	}
}

// WriteFile 依副檔名輸出到 path，回傳絕對路徑。
//
// 先在記憶體中完成編碼，成功後才建立檔案。
func WriteFile(path string, ts []stats.NamedTable) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, filepath.Ext(path), ts); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errs.Wrap(err, "can not resolve output path")
	}
	if dir := filepath.Dir(abs); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errs.Wrap(err, "can not create output dir")
		}
	}
	if err := os.WriteFile(abs, buf.Bytes(), 0o644); err != nil {
		return "", errs.Wrap(err, "can not write output file")
	}
	return abs, nil
}
