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

package spec

import (
	"errors"
	"slices"
	"testing"

	"github.com/zintix-labs/crashlab/errs"
)

func TestStagesDropsPartialRows(t *testing.T) {
	tbl := &ConfigTable{
		Name:    "Config_A",
		Columns: []string{"Stage", "Multiplier", "P_black", "Note"},
		Rows: [][]string{
			{"1", "1.02", "0.95", "x"},
			{"2", "1.07", "", "missing p"},
			{"3", "NaN", "0.9"},
			{"4.0", " 1.29 ", "0.885"},
			{"5", "1.41"}, // ragged row
		},
	}
	got, err := tbl.Stages()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []StageConfig{
		{Stage: 1, Multiplier: 1.02, PBlack: 0.95},
		{Stage: 4, Multiplier: 1.29, PBlack: 0.885},
	}
	if !slices.Equal(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestStagesMissingColumns(t *testing.T) {
	tbl := &ConfigTable{
		Name:    "Config_B",
		Columns: []string{"Stage", "Multiplier"},
		Rows:    [][]string{{"1", "2.0"}},
	}
	_, err := tbl.Stages()
	if !errors.Is(err, errs.ErrMissingColumns) {
		t.Fatalf("expected MissingColumns, got %v", err)
	}
	e, _ := errs.AsErr(err)
	if !slices.Equal(e.Fields, []string{"P_black"}) {
		t.Fatalf("missing fields got %v", e.Fields)
	}
}

func TestStagesColumnNamesAreCaseSensitive(t *testing.T) {
	tbl := &ConfigTable{Columns: []string{"stage", "Multiplier", "p_black"}}
	if miss := tbl.Missing(); !slices.Equal(miss, []string{"Stage", "P_black"}) {
		t.Fatalf("missing got %v", miss)
	}
}

func TestStagesInvalidConfigValue(t *testing.T) {
	cases := map[string][][]string{
		"Stage":      {{"abc", "2", "0.5"}},
		"Multiplier": {{"1", "two", "0.5"}},
		"P_black":    {{"1", "2", "half"}},
	}
	for field, rows := range cases {
		tbl := &ConfigTable{Name: "T", Columns: RequiredColumns, Rows: rows}
		_, err := tbl.Stages()
		if !errors.Is(err, errs.ErrInvalidConfigValue) {
			t.Fatalf("%s: expected InvalidConfigValue, got %v", field, err)
		}
		if e, _ := errs.AsErr(err); e.Fields[0] != field {
			t.Fatalf("%s: wrong field %v", field, e.Fields)
		}
	}
	frac := &ConfigTable{Columns: RequiredColumns, Rows: [][]string{{"1.5", "2", "0.5"}}}
	if _, err := frac.Stages(); !errors.Is(err, errs.ErrInvalidConfigValue) {
		t.Fatalf("fractional stage should be rejected, got %v", err)
	}
}

func TestTableFromStagesRoundTrip(t *testing.T) {
	in := []StageConfig{{Stage: 2, Multiplier: 13.7, PBlack: 0.502}, {Stage: 1, Multiplier: 1.02, PBlack: 0.95}}
	out, err := TableFromStages("x", in).Stages()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(in, out) {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestSimSettingYAML(t *testing.T) {
	s, err := GetSimSettingByYAML([]byte("trial_counts: [100, 10]\nbet: 2.5\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(s.TrialCounts, []int{100, 10}) || s.Bet != 2.5 || s.Seed != DefaultSeed || s.RNG != DefaultRNG {
		t.Fatalf("unexpected setting: %+v", s)
	}
	if _, err := GetSimSettingByYAML([]byte("trial_counts: [10, 10]\n")); !errors.Is(err, errs.ErrInvalidParameter) {
		t.Fatalf("duplicate counts should fail, got %v", err)
	}
	if _, err := GetSimSettingByJSON([]byte(`{"bet": 0}`)); !errors.Is(err, errs.ErrInvalidParameter) {
		t.Fatalf("zero bet should fail, got %v", err)
	}
}

func TestParseTrialCounts(t *testing.T) {
	got, err := ParseTrialCounts("10_000, 100000 1000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(got, []int{10000, 100000, 1000000}) {
		t.Fatalf("got %v", got)
	}
	for _, bad := range []string{"", "0", "10,x", "5,5"} {
		if _, err := ParseTrialCounts(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
