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
package v1

import (
	"math"
	"net/http"

	"github.com/zintix-labs/crashlab/dto"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/server/httperr"
	"github.com/zintix-labs/crashlab/stats"
)

// EV 牌組 EV 報表，不跑模擬
func EV(w http.ResponseWriter, r *http.Request) {
	req := new(dto.EVRequest)
	if err := dto.DecodeJSON(r, req); err != nil {
		httperr.Errs(w, err)
		return
	}
	scale := req.Scale()
	if !(scale > 0) || math.IsInf(scale, 0) {
		httperr.Errs(w, errs.InvalidParameterf("global_scale must be > 0, got %v", scale))
		return
	}
	writeJSON(w, stats.Report(req.Decks, scale))
}

// Fit 反推讓整體 EV 接近 target 的全域倍率（夾在 [0.1, 3.0]）
func Fit(w http.ResponseWriter, r *http.Request) {
	req := new(dto.FitRequest)
	if err := dto.DecodeJSON(r, req); err != nil {
		httperr.Errs(w, err)
		return
	}
	scale, err := stats.FitScale(req.Decks, req.Target)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, dto.FitResponse{
		Target:   req.Target,
		BaseEV:   stats.OverallEV(req.Decks, 1),
		Scale:    scale,
		FittedEV: stats.OverallEV(req.Decks, scale),
	})
}
