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
// Package v1 是 /v1 底下的 HTTP handler：模擬、上傳、匯出與牌組 EV。
package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/zintix-labs/crashlab"
	"github.com/zintix-labs/crashlab/dto"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/sdk/core"
	"github.com/zintix-labs/crashlab/server/httperr"
	"github.com/zintix-labs/crashlab/server/netsvr/middleware"
	"github.com/zintix-labs/crashlab/server/svrcfg"
	"github.com/zintix-labs/crashlab/spec"
	"github.com/zintix-labs/crashlab/tableio"
)

// 上傳檔案大小上限
const maxUpload = 32 << 20

// XLSXName 匯出活頁簿的下載檔名
const XLSXName = "SimResults.xlsx"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type SimHandler struct {
	cfg *svrcfg.SvrCfg
	log *slog.Logger
}

func NewSimHandler(sCfg *svrcfg.SvrCfg) (*SimHandler, error) {
	if sCfg == nil || sCfg.Presets == nil {
		return nil, errs.NewFatal("sim handler needs a validated server config")
	}
	return &SimHandler{cfg: sCfg, log: sCfg.Log}, nil
}

// Presets 列出內建設定表（已解析成關卡）與伺服器預設參數。
// 解析失敗的表仍會列出，並附上錯誤訊息。
func (sh *SimHandler) Presets(w http.ResponseWriter, r *http.Request) {
	resp := dto.PresetsResponse{
		Presets: make([]dto.Preset, 0, sh.cfg.Presets.Len()),
		Default: sh.cfg.Defaults,
	}
	for _, name := range sh.cfg.Presets.Names() {
		p := dto.Preset{Name: name}
		st, err := sh.cfg.Presets.Stages(name)
		if err != nil {
			p.Error = err.Error()
		} else {
			p.Stages = st
		}
		resp.Presets = append(resp.Presets, p)
	}
	writeJSON(w, resp)
}

// Sim GET 以 query 指定內建表與參數；POST 以 JSON 帶表或指定內建表。
func (sh *SimHandler) Sim(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodeSimRequest(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	resp, err := sh.simulate(r.Context(), req, nil)
	if err != nil {
		httperr.Log(sh.log, "sim failed", err)
		httperr.Errs(w, err)
		return
	}
	w.Header().Set(middleware.HeaderRunID, resp.RunID)
	writeJSON(w, resp)
}

// Upload multipart 上傳一個 CSV 或活頁簿（欄位 file），參數放在其它表單欄位，欄位名稱同 GET。
func (sh *SimHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		httperr.Errs(w, errs.Warnf("invalid multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	f, fh, err := r.FormFile("file")
	if err != nil {
		httperr.Errs(w, errs.Warnf("file is required: %v", err))
		return
	}
	defer f.Close()

	tables, err := tableio.ReadUpload(fh.Filename, f)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	req, err := dto.DecodeSimForm(url.Values(r.MultipartForm.Value))
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	resp, err := sh.simulate(r.Context(), req, tables)
	if err != nil {
		httperr.Log(sh.log, "upload sim failed", err)
		httperr.Errs(w, err)
		return
	}
	w.Header().Set(middleware.HeaderRunID, resp.RunID)
	writeJSON(w, resp)
}

// XLSX 與 POST /v1/sim 同樣的請求，回傳每張成功的表一個工作表的活頁簿。
func (sh *SimHandler) XLSX(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodeSimRequest(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	resp, err := sh.simulate(r.Context(), req, nil)
	if err != nil {
		httperr.Log(sh.log, "xlsx sim failed", err)
		httperr.Errs(w, err)
		return
	}
	ts := resp.NamedTables()
	if len(ts) == 0 {
		httperr.Errs(w, firstTableErr(resp))
		return
	}
	buf := new(bytes.Buffer)
	if err := tableio.WriteXLSX(buf, ts); err != nil {
		httperr.Log(sh.log, "xlsx encode failed", err)
		httperr.Errs(w, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+XLSXName+`"`)
	w.Header().Set(middleware.HeaderRunID, resp.RunID)
	_, _ = w.Write(buf.Bytes())
}

// simulate 決定參數與表來源後逐張執行；單張表的錯誤留在回應中，不影響其它表。
func (sh *SimHandler) simulate(ctx context.Context, req *dto.SimRequest, uploaded []*spec.ConfigTable) (dto.SimResponse, error) {
	setting, err := req.Setting(sh.cfg.Defaults)
	if err != nil {
		return dto.SimResponse{}, err
	}
	tables := uploaded
	if tables == nil {
		if tables, err = sh.tables(req); err != nil {
			return dto.SimResponse{}, err
		}
	}
	if len(tables) == 0 {
		return dto.SimResponse{}, errs.InvalidParameterf("no config table to simulate")
	}
	if !setting.Analytical {
		if err := sh.checkBudget(setting); err != nil {
			return dto.SimResponse{}, err
		}
	}
	cf, err := core.FactoryByName(setting.RNG)
	if err != nil {
		return dto.SimResponse{}, err
	}
	runID := uuid.NewString()
	sim := crashlab.New(
		crashlab.WithFactory(cf),
		crashlab.WithLogger(sh.log.With(slog.String("run_id", runID))),
		crashlab.WithAnalytical(setting.Analytical),
	)
	trs, err := sim.RunAll(ctx, tables, crashlab.RequestFromSetting(setting), crashlab.Isolate)
	if err != nil {
		return dto.SimResponse{}, err
	}
	return dto.NewSimResponse(runID, setting, trs), nil
}

func (sh *SimHandler) tables(req *dto.SimRequest) ([]*spec.ConfigTable, error) {
	if len(req.Tables) > 0 {
		return req.ToTables()
	}
	if len(req.Presets) == 0 {
		return sh.cfg.Presets.Tables(), nil
	}
	out := make([]*spec.ConfigTable, 0, len(req.Presets))
	for _, name := range req.Presets {
		t, ok := sh.cfg.Presets.Table(name)
		if !ok {
			return nil, errs.InvalidParameterf("unknown preset: %q", name)
		}
		out = append(out, t)
	}
	return out, nil
}

// checkBudget 逐一檢查 trial count 是否超過伺服器上限
func (sh *SimHandler) checkBudget(s spec.SimSetting) error {
	for _, n := range s.TrialCounts {
		if n > sh.cfg.MaxTrials {
			return errs.InvalidParameterf("trial count %d exceeds server limit %d", n, sh.cfg.MaxTrials)
		}
	}
	return nil
}

func firstTableErr(resp dto.SimResponse) error {
	for _, t := range resp.Tables {
		if t.Error != "" {
			return errs.NewWithExtra(errs.Warn, "no table simulated", "table="+t.Name+" err="+t.Error)
		}
	}
	return errs.NewWarn("no table simulated")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
