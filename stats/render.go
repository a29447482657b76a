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

package stats

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ResultRender 定義輸出行為
type ResultRender interface {
	Write(w io.Writer, ts []NamedTable) error
}

// Json渲染
type JsonResultRender struct{}

func (jr *JsonResultRender) Write(w io.Writer, ts []NamedTable) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ts)
}

// YAML渲染
type YAMLResultRender struct{}

func (yr *YAMLResultRender) Write(w io.Writer, ts []NamedTable) error {
	// 不管欄位，只要是陣列（YAML Sequence），就維持外層預設展開；
	// 只有「最內層的一維陣列」或「本身就是一維陣列」時才輸出成 flow style：[..., ...]
	return forceReadableList(w, &ts)
}

// CSV渲染：每張表一段，段首為 "# <name>" 註解列，接著表頭與資料列，段與段之間空一行。
type CSVResultRender struct{}

func (cr *CSVResultRender) Write(w io.Writer, ts []NamedTable) error {
	for i, t := range ts {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "# "+t.Name+"\n"); err != nil {
			return err
		}
		if err := WriteCSV(w, t.Results); err != nil {
			return err
		}
	}
	return nil
}

// WriteCSV 輸出單張表（表頭 + 資料列），欄位順序見 ResultColumns。
func WriteCSV(w io.Writer, t ResultTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ResultColumns); err != nil {
		return err
	}
	for _, r := range t {
		if err := cw.Write(r.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Record 依 ResultColumns 順序輸出字串欄位
func (r StageResult) Record() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return []string{
		strconv.Itoa(r.Stage),
		f(r.Multiplier),
		f(r.PBlack),
		f(r.ExpectedRTP),
		strconv.Itoa(r.Rounds),
		f(r.SimRTP),
		f(r.SimStdDev),
		f(r.SuccessRate),
		f(r.CILow),
		f(r.CIHigh),
	}
}

// Values 依 ResultColumns 順序輸出原生型別（試算表儲存格用）
func (r StageResult) Values() []any {
	return []any{
		r.Stage, r.Multiplier, r.PBlack, r.ExpectedRTP, r.Rounds,
		r.SimRTP, r.SimStdDev, r.SuccessRate, r.CILow, r.CIHigh,
	}
}

// YAML 內層方法
func forceReadableList[T any](w io.Writer, t *T) error {
	var node yaml.Node
	if err := node.Encode(t); err != nil {
		return err
	}

	// 自頂向下調整所有 sequence node 的 style：
	// - 若該 sequence 內部「沒有子 sequence / mapping」，代表它是最內層的一維 => 用 flow style: [...]
	// - 否則保持預設 block（展開）
	styleReadableSequences(&node)

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(&node)
}

func styleReadableSequences(n *yaml.Node) {
	if n == nil {
		return
	}

	switch n.Kind {
	case yaml.DocumentNode, yaml.MappingNode:
		for _, c := range n.Content {
			styleReadableSequences(c)
		}
		return

	case yaml.SequenceNode:
		nested := false
		for _, c := range n.Content {
			if c != nil && (c.Kind == yaml.SequenceNode || c.Kind == yaml.MappingNode) {
				nested = true
				break
			}
		}

		for _, c := range n.Content {
			styleReadableSequences(c)
		}

		if !nested {
			n.Style = yaml.FlowStyle
		}
		return

	default:
		return
	}
}
