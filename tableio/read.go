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

// Package tableio 負責設定表與結果表的檔案格式：CSV、XLSX 讀取，以及 XLSX / CSV / JSON / YAML 輸出。
//
// tableio 只處理 io.Reader / io.Writer 與副檔名，不碰目錄結構；
// 目錄與多來源合併由 catalog 負責。
package tableio

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/spec"
)

// UploadedName 上傳單一 CSV 時使用的表名
const UploadedName = "Config_uploaded"

// 支援的副檔名
const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
	ExtXLSM = ".xlsm"
)

// ExtXLS 舊版 BIFF 活頁簿，只用來給出明確的錯誤
const ExtXLS = ".xls"

// IsWorkbook 副檔名是否為可讀取的 OOXML 活頁簿（.xlsx / .xlsm）
func IsWorkbook(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ExtXLSX, ExtXLSM:
		return true
	}
	return false
}

// IsLegacyXLS 副檔名是否為 .xls
func IsLegacyXLS(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) == ExtXLS
}

// ErrLegacyXLS 回傳 .xls 不支援的錯誤（InvalidParameter）
func ErrLegacyXLS(filename string) error {
	return errs.InvalidParameterf("legacy .xls workbook is not supported: %q (save it as .xlsx)", filename)
}

// IsCSV 副檔名是否為 CSV
func IsCSV(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) == ExtCSV
}

// ReadCSV 讀取一份帶表頭的 CSV 成為設定表。
//
// 允許列長度不一（不足的欄位視為缺值），第一欄表頭的 UTF-8 BOM 會被移除。
// # 開頭的列照常讀入，沒有註解列。
// 空檔案回傳沒有欄位的表，交由 Stages() 回報缺欄。
func ReadCSV(r io.Reader, name string) (*spec.ConfigTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	recs, err := cr.ReadAll()
	if err != nil {
		e := errs.Warnf("can not parse csv: %v", err)
		e.Extra = "table=" + name
		return nil, e
	}
	t := &spec.ConfigTable{Name: name}
	if len(recs) == 0 {
		return t, nil
	}
	header := recs[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	t.Columns = trimAll(header)
	t.Rows = recs[1:]
	return t, nil
}

// ReadXLSX 讀取活頁簿中所有名稱以 config 開頭（不分大小寫）的工作表，依活頁簿順序回傳。
//
// 每張工作表第一列為表頭；儲存格取原始值（不套用顯示格式）。
func ReadXLSX(r io.Reader) ([]*spec.ConfigTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errs.Warnf("can not open workbook: %v", err)
	}
	defer f.Close()

	out := make([]*spec.ConfigTable, 0, 4)
	for _, sheet := range f.GetSheetList() {
		if !strings.HasPrefix(strings.ToLower(sheet), "config") {
			continue
		}
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, errs.WrapWithExtra(err, "can not read sheet", "sheet="+sheet)
		}
		t := &spec.ConfigTable{Name: sheet}
		if len(rows) > 0 {
			t.Columns = trimAll(rows[0])
			t.Rows = rows[1:]
		}
		out = append(out, t)
	}
	return out, nil
}

// ReadUpload 依檔名副檔名讀取單一上傳檔：CSV 成為 Config_uploaded，活頁簿讀出所有 config 工作表。
func ReadUpload(filename string, r io.Reader) ([]*spec.ConfigTable, error) {
	switch {
	case IsCSV(filename):
		t, err := ReadCSV(r, UploadedName)
		if err != nil {
			return nil, err
		}
		return []*spec.ConfigTable{t}, nil
	case IsWorkbook(filename):
		return ReadXLSX(r)
	case IsLegacyXLS(filename):
		return nil, ErrLegacyXLS(filename)
	default:
		return nil, errs.InvalidParameterf("unsupported file type: %q (want .csv, .xlsx, .xlsm)", filename)
	}
}

// ResultName 設定表名 -> 結果表名：取最後一個 "Config_" 之後的部分，前綴 "Sim_"。
func ResultName(tableName string) string {
	if i := strings.LastIndex(tableName, "Config_"); i >= 0 {
		tableName = tableName[i+len("Config_"):]
	}
	return fmt.Sprintf("Sim_%s", tableName)
}

func trimAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
