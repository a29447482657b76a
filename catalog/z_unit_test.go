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
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/xuri/excelize/v2"
	"github.com/zintix-labs/crashlab/errs"
)

const cfgCSV = "Stage,Multiplier,P_black\n1,1.02,0.95\n2,1.07,0.9\n"

func workbook(t *testing.T, sheets ...string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s); err != nil {
				t.Fatal(err)
			}
		} else if _, err := f.NewSheet(s); err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(s, "A1", &[]any{"Stage", "Multiplier", "P_black"}); err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(s, "A2", &[]any{1, 2.0, 0.5}); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNewCatalog(t *testing.T) {
	fsys := fstest.MapFS{
		"b_second.csv":  {Data: []byte(cfgCSV)},
		"a_first.csv":   {Data: []byte(cfgCSV)},
		"book.xlsx":     {Data: workbook(t, "Config_x", "Summary", "config_y")},
		".hidden.csv":   {Data: []byte("garbage")},
		"readme.md":     {Data: []byte("# notes")},
		"settings.yaml": {Data: []byte("seed: 1")},
	}
	c, err := New(fsys)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := c.Names(); !slices.Equal(got, []string{"a_first", "b_second", "Config_x", "config_y"}) {
		t.Fatalf("names %v", got)
	}
	st, err := c.Stages("a_first")
	if err != nil || len(st) != 2 {
		t.Fatalf("stages %v %v", st, err)
	}
	if _, err := c.Stages("missing"); err == nil {
		t.Fatal("unknown table should fail")
	}

	tbl, ok := c.Table("Config_x")
	if !ok {
		t.Fatal("Config_x should exist")
	}
	tbl.Rows[0][0] = "99"
	again, _ := c.Table("Config_x")
	if again.Rows[0][0] != "1" {
		t.Fatal("Table should return a copy")
	}

	results := make([]string, 0)
	for _, e := range c.Entries() {
		results = append(results, e.ResultName())
	}
	if !slices.Equal(results, []string{"Sim_a_first", "Sim_b_second", "Sim_x", "Sim_config_y"}) {
		t.Fatalf("result names %v", results)
	}
}

func TestNewCatalogErrors(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatal("no fs should fail")
	}
	if _, err := New(fstest.MapFS{"sub/a.csv": {Data: []byte(cfgCSV)}}); err == nil || !strings.Contains(err.Error(), "flat") {
		t.Fatalf("subdirectory should fail, got %v", err)
	}
	dupFile := fstest.MapFS{"a.csv": {Data: []byte(cfgCSV)}}
	if _, err := New(dupFile, dupFile); err == nil || !strings.Contains(err.Error(), "duplicate config") {
		t.Fatalf("duplicate file should fail, got %v", err)
	}
	dupTable := fstest.MapFS{
		"Config_x.csv": {Data: []byte(cfgCSV)},
		"book.xlsx":    {Data: workbook(t, "Config_x")},
	}
	if _, err := New(dupTable); err == nil || !strings.Contains(err.Error(), "duplicate table name") {
		t.Fatalf("duplicate table should fail, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Config_first_attempt.csv"), []byte(cfgCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "deck2.csv"), []byte(cfgCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	srcs, err := Load(dir)
	if err != nil {
		t.Fatalf("dir: %v", err)
	}
	if len(srcs) != 2 || srcs[0].ResultName != "Sim_Config_first_attempt" || srcs[1].ResultName != "Sim_deck2" {
		t.Fatalf("dir sources %+v", srcs)
	}

	single, err := Load(filepath.Join(dir, "deck2.csv"))
	if err != nil || len(single) != 1 || single[0].ResultName != "Sim" {
		t.Fatalf("single csv %+v %v", single, err)
	}

	book := filepath.Join(t.TempDir(), "cfg.xlsx")
	if err := os.WriteFile(book, workbook(t, "Config_first_attempt", "Config_chosen_moment"), 0o644); err != nil {
		t.Fatal(err)
	}
	ws, err := Load(book)
	if err != nil {
		t.Fatalf("workbook: %v", err)
	}
	if len(ws) != 2 || ws[0].ResultName != "Sim_first_attempt" || ws[1].ResultName != "Sim_chosen_moment" {
		t.Fatalf("workbook sources %+v", ws)
	}

	if _, err := Load(filepath.Join(dir, "nope.csv")); err == nil {
		t.Fatal("missing path should fail")
	}

	old := filepath.Join(t.TempDir(), "old.xls")
	if err := os.WriteFile(old, []byte{0xd0, 0xcf, 0x11, 0xe0}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(old); !errors.Is(err, errs.ErrInvalidParameter) {
		t.Fatalf("legacy xls should be rejected, got %v", err)
	}
}

func TestLoadDirSkipsSubdirsAndLockFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.csv"), []byte(cfgCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "archive"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "archive", "old.csv"), []byte(cfgCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	// Excel 開著活頁簿時留下的鎖定檔，不是合法的 zip
	if err := os.WriteFile(filepath.Join(dir, "~$notes.xlsx"), []byte("owner"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "legacy.xls"), []byte("biff"), 0o644); err != nil {
		t.Fatal(err)
	}

	srcs, err := Load(dir)
	if err != nil {
		t.Fatalf("dir: %v", err)
	}
	if len(srcs) != 1 || srcs[0].ResultName != "Sim_a" {
		t.Fatalf("only the top-level csv should load, got %+v", srcs)
	}

	// New 維持扁平目錄約定
	if _, err := New(os.DirFS(dir)); err == nil || !strings.Contains(err.Error(), "flat") {
		t.Fatalf("New should still reject subdirectories, got %v", err)
	}
}

func TestScan(t *testing.T) {
	c, err := Scan(fstest.MapFS{
		"b.csv":          {Data: []byte(cfgCSV)},
		"~$b.csv":        {Data: []byte("lock")},
		"nested/c.csv":   {Data: []byte(cfgCSV)},
		"nested/d/e.csv": {Data: []byte(cfgCSV)},
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if got := c.Names(); !slices.Equal(got, []string{"b"}) {
		t.Fatalf("names %v", got)
	}
}
