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

package dto

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"testing"

	"github.com/zintix-labs/crashlab"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/spec"
	"github.com/zintix-labs/crashlab/stats"
)

func TestDecodeSimRequestGET(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/sim?rounds=100,1000&seed=7&bet=2.5&rng=pcg32&analytical=true&preset=a,b&preset=c", nil)
	req, err := DecodeSimRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(req.TrialCounts, []int{100, 1000}) || *req.Seed != 7 || *req.Bet != 2.5 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.RNG != "pcg32" || !*req.Analytical || !slices.Equal(req.Presets, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected request: %+v", req)
	}

	bad := httptest.NewRequest(http.MethodGet, "/v1/sim?seed=x", nil)
	if _, err := DecodeSimRequest(bad); err == nil {
		t.Fatal("bad seed should fail")
	}
}

func TestDecodeSimRequestPOST(t *testing.T) {
	body := []byte(`{
		"tables": [
			{"name": "Config_json", "columns": ["Stage","Multiplier","P_black"], "rows": [[1, 1.02, 0.95], [2, "1.07", null]]},
			{"stages": [{"Stage": 1, "Multiplier": 2, "P_black": 0.5}]}
		],
		"trial_counts": [10, 100],
		"bet": 1.5
	}`)
	r := httptest.NewRequest(http.MethodPost, "/v1/sim", bytes.NewReader(body))
	req, err := DecodeSimRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tables, err := req.ToTables()
	if err != nil {
		t.Fatalf("to tables: %v", err)
	}
	if len(tables) != 2 || tables[0].Name != "Config_json" || tables[1].Name != "Config_2" {
		t.Fatalf("tables %+v", tables)
	}
	if !slices.Equal(tables[0].Rows[0], []string{"1", "1.02", "0.95"}) || tables[0].Rows[1][2] != "" {
		t.Fatalf("cells %+v", tables[0].Rows)
	}
	stages, err := tables[0].Stages()
	if err != nil || len(stages) != 1 {
		t.Fatalf("null cell row should be dropped: %v %+v", err, stages)
	}

	s, err := req.Setting(spec.DefaultSimSetting())
	if err != nil {
		t.Fatalf("setting: %v", err)
	}
	if !slices.Equal(s.TrialCounts, []int{10, 100}) || s.Bet != 1.5 || s.Seed != spec.DefaultSeed {
		t.Fatalf("setting %+v", s)
	}
}

func TestDecodeSimRequestRejects(t *testing.T) {
	unknown := httptest.NewRequest(http.MethodPost, "/v1/sim", bytes.NewReader([]byte(`{"unknown": true}`)))
	if _, err := DecodeSimRequest(unknown); err == nil {
		t.Fatal("expected error for unknown field")
	}
	put := httptest.NewRequest(http.MethodPut, "/v1/sim", nil)
	if _, err := DecodeSimRequest(put); err == nil {
		t.Fatal("expected error for PUT")
	}
	cell := &SimRequest{Tables: []TableDTO{{Columns: []string{"Stage"}, Rows: [][]any{{true}}}}}
	if _, err := cell.ToTables(); !errors.Is(err, errs.ErrInvalidConfigValue) {
		t.Fatalf("bool cell should fail, got %v", err)
	}
	zero := 0.0
	if _, err := (&SimRequest{Bet: &zero}).Setting(spec.DefaultSimSetting()); !errors.Is(err, errs.ErrInvalidParameter) {
		t.Fatalf("zero bet should fail, got %v", err)
	}
}

func TestDecodeSimForm(t *testing.T) {
	req, err := DecodeSimForm(url.Values{"rounds": {"10 20"}, "bet": {"3"}})
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	if !slices.Equal(req.TrialCounts, []int{10, 20}) || *req.Bet != 3 {
		t.Fatalf("form request %+v", req)
	}
}

func TestNewSimResponse(t *testing.T) {
	ok := crashlab.TableResult{Name: "Config_first_attempt", Results: stats.ResultTable{
		{Stage: 1, Rounds: 10, SimRTP: 1, ExpectedRTP: 1, CILow: 0.9, CIHigh: 1.1, SuccessRate: 0.5},
	}}
	bad := crashlab.TableResult{
		Name: "Config_bad",
		Err:  errs.WrapWithExtra(errs.MissingColumns("Config_bad", []string{"P_black"}), "table failed", "table=Config_bad"),
	}
	resp := NewSimResponse("rid", spec.DefaultSimSetting(), []crashlab.TableResult{ok, bad})
	if resp.RunID != "rid" || len(resp.Tables) != 2 {
		t.Fatalf("response %+v", resp)
	}
	if resp.Tables[0].ResultName != "Sim_first_attempt" || len(resp.Tables[0].Convergence) != 1 || len(resp.Tables[0].Summary) != 1 {
		t.Fatalf("ok table %+v", resp.Tables[0])
	}
	b := resp.Tables[1]
	if b.Code != "missing_columns" || !slices.Equal(b.Fields, []string{"P_black"}) || b.Results != nil {
		t.Fatalf("bad table %+v", b)
	}
	named := resp.NamedTables()
	if len(named) != 1 || named[0].Name != "Sim_first_attempt" {
		t.Fatalf("named %+v", named)
	}
}

func TestEVRequestScale(t *testing.T) {
	er := &EVRequest{}
	if er.Scale() != 1 {
		t.Fatal("default scale should be 1")
	}
	two := 2.0
	er.GlobalScale = &two
	if er.Scale() != 2 {
		t.Fatal("explicit scale should be used")
	}
}
