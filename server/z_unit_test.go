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
package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/zintix-labs/crashlab/demo"
	"github.com/zintix-labs/crashlab/dto"
	"github.com/zintix-labs/crashlab/server/httperr"
	"github.com/zintix-labs/crashlab/server/svrcfg"
	"github.com/zintix-labs/crashlab/stats"
	"github.com/zintix-labs/crashlab/tableio"
)

func newTestHandler(t *testing.T, mutate func(*svrcfg.SvrCfg)) http.Handler {
	t.Helper()
	cfg, err := demo.NewServerConfig()
	if err != nil {
		t.Fatalf("demo config: %v", err)
	}
	cfg.Log = slog.New(slog.DiscardHandler)
	if mutate != nil {
		mutate(cfg)
	}
	h, err := NewHandler(cfg)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return h
}

func do(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestPresets(t *testing.T) {
	h := newTestHandler(t, nil)
	w := do(h, httptest.NewRequest(http.MethodGet, "/v1/presets", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	resp := decode[dto.PresetsResponse](t, w)
	if len(resp.Presets) != 2 || resp.Presets[0].Name != "Config_chosen_moment" || resp.Presets[1].Name != "Config_first_attempt" {
		t.Fatalf("presets %+v", resp.Presets)
	}
	if len(resp.Presets[0].Stages) != 8 || len(resp.Presets[1].Stages) != 15 {
		t.Fatalf("stage counts %d %d", len(resp.Presets[0].Stages), len(resp.Presets[1].Stages))
	}
	if len(resp.Default.TrialCounts) == 0 {
		t.Fatal("defaults should be reported")
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatal("request id header missing")
	}
}

func TestSimGET(t *testing.T) {
	h := newTestHandler(t, nil)
	w := do(h, httptest.NewRequest(http.MethodGet, "/v1/sim?rounds=100,10&seed=7&preset=Config_chosen_moment", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	resp := decode[dto.SimResponse](t, w)
	if resp.RunID == "" || w.Header().Get("X-Run-Id") != resp.RunID {
		t.Fatalf("run id %q header %q", resp.RunID, w.Header().Get("X-Run-Id"))
	}
	if resp.Setting.Seed != 7 || len(resp.Tables) != 1 {
		t.Fatalf("response %+v", resp)
	}
	tbl := resp.Tables[0]
	if tbl.ResultName != "Sim_chosen_moment" || len(tbl.Results) != 16 || tbl.Error != "" {
		t.Fatalf("table %+v", tbl)
	}
	if !tbl.Results.IsSorted() || tbl.Results[0].Rounds != 10 {
		t.Fatal("results should be sorted by rounds then stage")
	}
	if len(tbl.Convergence) != 2 || len(tbl.Summary) != 16 {
		t.Fatalf("convergence %d summary %d", len(tbl.Convergence), len(tbl.Summary))
	}

	again := decode[dto.SimResponse](t, do(h, httptest.NewRequest(http.MethodGet, "/v1/sim?rounds=100,10&seed=7&preset=Config_chosen_moment", nil)))
	for i := range tbl.Results {
		if again.Tables[0].Results[i].SimRTP != tbl.Results[i].SimRTP {
			t.Fatal("same seed should reproduce the same results")
		}
	}
	if again.RunID == resp.RunID {
		t.Fatal("each run should get its own id")
	}
}

func TestSimPOSTIsolatesTableErrors(t *testing.T) {
	h := newTestHandler(t, nil)
	body := `{
		"tables": [
			{"name": "Config_bad", "columns": ["Stage", "Multiplier"], "rows": [[1, 2]]},
			{"name": "Config_ok", "stages": [{"Stage": 1, "Multiplier": 2, "P_black": 0.5}]}
		],
		"trial_counts": [50],
		"analytical": true
	}`
	w := do(h, httptest.NewRequest(http.MethodPost, "/v1/sim", strings.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	resp := decode[dto.SimResponse](t, w)
	if len(resp.Tables) != 2 {
		t.Fatalf("tables %+v", resp.Tables)
	}
	bad, ok := resp.Tables[0], resp.Tables[1]
	if bad.Code != "missing_columns" || len(bad.Fields) != 1 || bad.Fields[0] != "P_black" || bad.Results != nil {
		t.Fatalf("bad table %+v", bad)
	}
	if ok.Error != "" || len(ok.Results) != 1 || ok.Results[0].SimRTP != 1 || ok.Results[0].ExpectedRTP != 1 {
		t.Fatalf("ok table %+v", ok)
	}
}

func TestSimRejects(t *testing.T) {
	cases := []struct {
		name   string
		req    *http.Request
		mutate func(*svrcfg.SvrCfg)
		status int
		code   string
	}{
		{"zero bet", httptest.NewRequest(http.MethodGet, "/v1/sim?bet=0", nil), nil, http.StatusBadRequest, "invalid_parameter"},
		{"unknown preset", httptest.NewRequest(http.MethodGet, "/v1/sim?preset=nope", nil), nil, http.StatusBadRequest, "invalid_parameter"},
		{"unknown rng", httptest.NewRequest(http.MethodGet, "/v1/sim?rounds=10&rng=mt", nil), nil, http.StatusBadRequest, "invalid_parameter"},
		{"duplicate rounds", httptest.NewRequest(http.MethodGet, "/v1/sim?rounds=10,10", nil), nil, http.StatusBadRequest, "invalid_parameter"},
		{"unknown field", httptest.NewRequest(http.MethodPost, "/v1/sim", strings.NewReader(`{"x":1}`)), nil, http.StatusBadRequest, ""},
		{
			"over budget",
			httptest.NewRequest(http.MethodGet, "/v1/sim?rounds=10,1001", nil),
			func(c *svrcfg.SvrCfg) { c.MaxTrials = 1000 },
			http.StatusBadRequest, "invalid_parameter",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(newTestHandler(t, tc.mutate), tc.req)
			if w.Code != tc.status {
				t.Fatalf("status %d: %s", w.Code, w.Body.String())
			}
			b := decode[httperr.Body](t, w)
			if b.Code != tc.code || b.Error == "" {
				t.Fatalf("body %+v", b)
			}
		})
	}
}

func TestSimAnalyticalSkipsBudget(t *testing.T) {
	h := newTestHandler(t, func(c *svrcfg.SvrCfg) { c.MaxTrials = 1 })
	w := do(h, httptest.NewRequest(http.MethodGet, "/v1/sim?rounds=1000000&analytical=true", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if resp := decode[dto.SimResponse](t, w); len(resp.Tables) != 2 {
		t.Fatalf("all presets should run, got %d", len(resp.Tables))
	}
}

func TestSimXLSX(t *testing.T) {
	h := newTestHandler(t, nil)
	body := `{"presets": ["Config_first_attempt", "Config_chosen_moment"], "trial_counts": [20]}`
	r := httptest.NewRequest(http.MethodPost, "/v1/sim/xlsx", strings.NewReader(body))
	r.Header.Set("Accept-Encoding", "gzip")
	w := do(h, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if ce := w.Header().Get("Content-Encoding"); ce != "" {
		t.Fatalf("workbook should not be compressed again, got %q", ce)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "SimResults.xlsx") {
		t.Fatalf("disposition %q", w.Header().Get("Content-Disposition"))
	}
	ts, err := tableio.ReadResultsXLSX(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("read workbook: %v", err)
	}
	if len(ts) != 2 || ts[0].Name != "Sim_first_attempt" || ts[1].Name != "Sim_chosen_moment" {
		t.Fatalf("sheets %+v", ts)
	}
	if len(ts[0].Results) != 15 || len(ts[1].Results) != 8 {
		t.Fatalf("rows %d %d", len(ts[0].Results), len(ts[1].Results))
	}
}

func TestSimUpload(t *testing.T) {
	h := newTestHandler(t, nil)
	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("file", "mine.csv")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.WriteString(fw, "Stage,Multiplier,P_black\n1,2,0.5\n2,4,NA\n3,4,0.25\n")
	_ = mw.WriteField("rounds", "30")
	_ = mw.WriteField("seed", "9")
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	r := httptest.NewRequest(http.MethodPost, "/v1/sim/upload", buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := do(h, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	resp := decode[dto.SimResponse](t, w)
	if len(resp.Tables) != 1 || resp.Tables[0].Name != tableio.UploadedName || len(resp.Tables[0].Results) != 2 {
		t.Fatalf("upload response %+v", resp)
	}
	if resp.Setting.Seed != 9 || resp.Setting.TrialCounts[0] != 30 {
		t.Fatalf("setting %+v", resp.Setting)
	}

	missing := httptest.NewRequest(http.MethodPost, "/v1/sim/upload", strings.NewReader("x"))
	missing.Header.Set("Content-Type", "text/plain")
	if w := do(h, missing); w.Code != http.StatusBadRequest {
		t.Fatalf("non multipart should be 400, got %d", w.Code)
	}
}

func TestEVAndFit(t *testing.T) {
	h := newTestHandler(t, nil)
	decks := `[
		{"name": "A", "weight": 1, "local_scale": 1, "stages": [{"Stage": 1, "Multiplier": 2, "P_black": 0.5}]},
		{"name": "B", "weight": 3, "local_scale": 1, "stages": [{"Stage": 1, "Multiplier": 1, "P_black": 1}]}
	]`
	w := do(h, httptest.NewRequest(http.MethodPost, "/v1/ev", strings.NewReader(`{"decks": `+decks+`, "global_scale": 2}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	rep := decode[stats.DeckReport](t, w)
	if rep.GlobalScale != 2 || len(rep.Decks) != 2 || math.Abs(rep.Overall-2) > 1e-12 {
		t.Fatalf("report %+v", rep)
	}

	w = do(h, httptest.NewRequest(http.MethodPost, "/v1/ev/fit", strings.NewReader(`{"decks": `+decks+`, "target": 0.97}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	fit := decode[dto.FitResponse](t, w)
	if math.Abs(fit.BaseEV-1) > 1e-12 || math.Abs(fit.Scale-0.97) > 1e-12 || math.Abs(fit.FittedEV-0.97) > 1e-12 {
		t.Fatalf("fit %+v", fit)
	}

	empty := do(h, httptest.NewRequest(http.MethodPost, "/v1/ev/fit", strings.NewReader(`{"decks": [], "target": 0.97}`)))
	if empty.Code != http.StatusBadRequest {
		t.Fatalf("empty decks should be 400, got %d", empty.Code)
	}
	neg := do(h, httptest.NewRequest(http.MethodPost, "/v1/ev", strings.NewReader(`{"decks": [], "global_scale": -1}`)))
	if neg.Code != http.StatusBadRequest {
		t.Fatalf("negative scale should be 400, got %d", neg.Code)
	}
}

func TestCompressionAndCORS(t *testing.T) {
	h := newTestHandler(t, func(c *svrcfg.SvrCfg) { c.CORSOrigins = []string{"http://localhost:3000"} })

	r := httptest.NewRequest(http.MethodGet, "/v1/presets", nil)
	r.Header.Set("Accept-Encoding", "gzip")
	w := do(h, r)
	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip, got %q", w.Header().Get("Content-Encoding"))
	}
	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	var resp dto.PresetsResponse
	if err := json.NewDecoder(zr).Decode(&resp); err != nil || len(resp.Presets) != 2 {
		t.Fatalf("decode gzip body: %v %+v", err, resp)
	}

	pre := httptest.NewRequest(http.MethodOptions, "/v1/sim", nil)
	pre.Header.Set("Origin", "http://localhost:3000")
	pre.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = do(h, pre)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow origin %q", got)
	}
}

func TestNewHandlerNeedsPresets(t *testing.T) {
	if _, err := NewHandler(&svrcfg.SvrCfg{Log: slog.New(slog.DiscardHandler)}); err == nil {
		t.Fatal("missing presets should fail")
	}
}
