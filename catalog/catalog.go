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

// Package catalog 把一或多個 fs.FS 來源整理成「有名字的設定表」目錄。
//
// 來源必須是扁平目錄：每個 .csv 是一張表（以檔名主檔名為表名），
// 每個 .xlsx / .xlsm 依活頁簿順序貢獻所有 config 開頭的工作表。
// 表名在整個目錄內必須唯一，重複時建立失敗。
package catalog

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/spec"
	"github.com/zintix-labs/crashlab/tableio"
)

var ErrDupName = errs.NewFatal("duplicate table name")

// Kind 表的來源種類
type Kind string

const (
	KindCSV   Kind = "csv"
	KindSheet Kind = "sheet"
)

// Entry 一張表的來源資訊
type Entry struct {
	Name string `json:"name"`
	File string `json:"file"`
	Kind Kind   `json:"kind"`
}

// ResultName 結果表名：CSV 為 Sim_<主檔名>，工作表為 Sim_<Config_ 之後的部分>。
func (e Entry) ResultName() string {
	if e.Kind == KindCSV {
		return "Sim_" + e.Name
	}
	return tableio.ResultName(e.Name)
}

// Catalog 建立後唯讀，可被多個 goroutine 共用；取出的表是拷貝。
type Catalog struct {
	entries []Entry
	byName  map[string]*spec.ConfigTable
	config  *multiFS
}

// New 掃描並解析所有來源。檔案依檔名排序處理，以 . 或 ~$ 開頭的檔案與其它副檔名略過。
// 來源內出現子目錄時失敗。
func New(cfg ...fs.FS) (*Catalog, error) {
	return build(false, cfg...)
}

// Scan 同 New，但只看單一來源的最上層：子目錄整個略過而不是報錯。
// 給使用者指定的資料夾用（裡面常放著封存目錄或 Excel 的 ~$ 鎖定檔）。
func Scan(fsys fs.FS) (*Catalog, error) {
	return build(true, fsys)
}

func build(skipDirs bool, cfg ...fs.FS) (*Catalog, error) {
	multFS, err := newMultiFS(skipDirs, cfg...)
	if err != nil {
		return nil, errs.Wrap(err, "can not create catalog")
	}
	c := &Catalog{
		entries: make([]Entry, 0, len(multFS.index)),
		byName:  make(map[string]*spec.ConfigTable, len(multFS.index)),
		config:  multFS,
	}
	for _, file := range multFS.Names() {
		tables, kind, err := multFS.load(file)
		if err != nil {
			return nil, errs.WrapWithExtra(err, "can not load config", "file="+file)
		}
		for _, t := range tables {
			if _, ok := c.byName[t.Name]; ok {
				return nil, errs.NewWithExtra(errs.Fatal, ErrDupName.Message, fmt.Sprintf("name=%s file=%s", t.Name, file))
			}
			c.byName[t.Name] = t
			c.entries = append(c.entries, Entry{Name: t.Name, File: file, Kind: kind})
		}
	}
	return c, nil
}

// Entries 依載入順序回傳所有表的來源資訊
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Names 依載入順序回傳表名
func (c *Catalog) Names() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Name
	}
	return out
}

// Len 表的數量
func (c *Catalog) Len() int { return len(c.entries) }

// Table 依名稱取表（深拷貝，呼叫端可自由修改）
func (c *Catalog) Table(name string) (*spec.ConfigTable, bool) {
	t, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return cloneTable(t), true
}

// Tables 依載入順序回傳所有表（深拷貝）
func (c *Catalog) Tables() []*spec.ConfigTable {
	out := make([]*spec.ConfigTable, len(c.entries))
	for i, e := range c.entries {
		out[i] = cloneTable(c.byName[e.Name])
	}
	return out
}

// Stages 依名稱取已解析的關卡
func (c *Catalog) Stages(name string) ([]spec.StageConfig, error) {
	t, ok := c.byName[name]
	if !ok {
		return nil, errs.Warnf("table not found: %q", name)
	}
	return t.Stages()
}

func cloneTable(t *spec.ConfigTable) *spec.ConfigTable {
	out := &spec.ConfigTable{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = append([]string(nil), r...)
	}
	return out
}

func validFileName(file string) bool {
	if file == "" || strings.HasPrefix(file, ".") || strings.HasPrefix(file, "~$") {
		return false
	}
	return tableio.IsCSV(file) || tableio.IsWorkbook(file)
}

type multiFS struct {
	src   []fs.FS
	index map[string]int // name -> src index
}

func newMultiFS(skipDirs bool, src ...fs.FS) (*multiFS, error) {
	if len(src) == 0 {
		return nil, errs.NewFatal("no fs provided")
	}
	for i, s := range src {
		if s == nil {
			return nil, errs.NewFatal(fmt.Sprintf("fs[%d] is nil", i))
		}
	}

	m := &multiFS{
		src:   src,
		index: make(map[string]int, 64),
	}

	for i := 0; i < len(src); i++ {
		err := fs.WalkDir(src[i], ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				// 只允許根目錄，出現任何子目錄都視為違反扁平目錄約定
				if p == "." {
					return nil
				}
				if skipDirs {
					return fs.SkipDir
				}
				return errs.NewFatal(fmt.Sprintf("config FS must be flat (no subdirectories): %q", p))
			}
			if strings.Contains(p, "/") {
				return errs.NewFatal(fmt.Sprintf("config FS must be flat (no subdirectories): %q", p))
			}
			if !validFileName(p) {
				return nil
			}
			if prev, ok := m.index[p]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate config %q in fs[%d] and fs[%d]", p, prev, i))
			}
			m.index[p] = i
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Names 已索引的檔名（排序）
func (m *multiFS) Names() []string {
	out := make([]string, 0, len(m.index))
	for n := range m.index {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (m *multiFS) GetFS(name string) (fs.FS, bool) {
	if id, ok := m.index[name]; ok {
		return m.src[id], ok
	}
	return nil, false
}

func (m *multiFS) load(name string) ([]*spec.ConfigTable, Kind, error) {
	src, ok := m.GetFS(name)
	if !ok {
		return nil, "", errs.NewWarn("file name dose not exist in catalog")
	}
	f, err := src.Open(name)
	if err != nil {
		return nil, "", errs.Wrap(err, "catalog open file error")
	}
	defer f.Close()

	if tableio.IsCSV(name) {
		stem := strings.TrimSuffix(name, path.Ext(name))
		t, err := tableio.ReadCSV(f, stem)
		if err != nil {
			return nil, "", err
		}
		return []*spec.ConfigTable{t}, KindCSV, nil
	}
	ts, err := tableio.ReadXLSX(f)
	return ts, KindSheet, err
}
