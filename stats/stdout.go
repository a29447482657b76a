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
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang language.Tag = language.English

var stdoutHeader = []string{"Stage", "Mult", "P_black", "Exp RTP", "Rounds", "Sim RTP", "StdDev", "Success", "95% CI"}

// StdOut 把一張結果表畫成終端機表格
func (t NamedTable) StdOut(w io.Writer) {
	fmt.Fprint(w, t.Format())
}

// Format 回傳表格字串（欄寬以顯示寬度計算）
func (t NamedTable) Format() string {
	p := message.NewPrinter(lang)
	rows := make([][]string, 0, len(t.Results))
	for _, r := range t.Results {
		rows = append(rows, []string{
			p.Sprintf("%d", r.Stage),
			p.Sprintf("%.2f", r.Multiplier),
			p.Sprintf("%.4f", r.PBlack),
			p.Sprintf("%.2f%%", 100*r.ExpectedRTP),
			p.Sprintf("%d", r.Rounds),
			p.Sprintf("%.2f%%", 100*r.SimRTP),
			p.Sprintf("%.3f", r.SimStdDev),
			p.Sprintf("%.2f%%", 100*r.SuccessRate),
			p.Sprintf("[%.2f%%,%.2f%%]", 100*r.CILow, 100*r.CIHigh),
		})
	}
	return fmtGrid(t.Name, stdoutHeader, rows)
}

// FormatDuration 以 rounds/sec 報告耗時
func FormatDuration(d time.Duration, rounds int) string {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	rps := int(float64(rounds) / sec)
	if sec < 60.0 {
		return p.Sprintf("used: %.2f seconds\nrps : %d rounds/sec\n", sec, rps)
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		return p.Sprintf("used: %dm %ds\nrps : %d rounds/sec\n", m, s, rps)
	}
	return p.Sprintf("used: %dh:%dm:%ds\nrps : %d rounds/sec\n", h, m, s, rps)
}

func fmtGrid(title string, header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, c := range row {
			if w := runewidth.StringWidth(c); w > widths[i] {
				widths[i] = w
			}
		}
	}

	inner := len(widths) - 1
	for _, w := range widths {
		inner += w + 2
	}
	titleW := runewidth.StringWidth(title)
	if titleW > inner {
		widths[len(widths)-1] += titleW - inner
		inner = titleW
	}

	var sb strings.Builder
	top := "+" + strings.Repeat("-", inner) + "+\n"
	divider := "+"
	for _, w := range widths {
		divider += strings.Repeat("-", w+2) + "+"
	}
	divider += "\n"

	left := (inner - titleW) / 2
	sb.WriteString(top)
	sb.WriteString("|" + blank(left) + title + blank(inner-titleW-left) + "|\n")
	sb.WriteString(divider)
	writeRow := func(cells []string) {
		sb.WriteString("|")
		for i, c := range cells {
			sb.WriteString(" " + blank(widths[i]-runewidth.StringWidth(c)) + c + " |")
		}
		sb.WriteString("\n")
	}
	writeRow(header)
	sb.WriteString(divider)
	for _, row := range rows {
		writeRow(row)
	}
	sb.WriteString(divider)
	return sb.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
