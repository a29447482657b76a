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

package crashlab

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/sdk/sampler"
	"github.com/zintix-labs/crashlab/spec"
	"github.com/zintix-labs/crashlab/stats"
)

// subSeedBound 子種子上界（不含）：子種子落在 [0, 2^32-2]。
const subSeedBound uint = 1<<32 - 1

// Request 一次模擬的參數。
type Request struct {
	TrialCounts []int   // 依給定順序跑，每個值都要 >= 1 且不重複
	Bet         float64 // 每局押注，> 0
	MasterSeed  int64   // 母種子
}

// RequestFromSetting 由 SimSetting 轉出 Request
func RequestFromSetting(s spec.SimSetting) Request {
	return Request{
		TrialCounts: append([]int(nil), s.TrialCounts...),
		Bet:         s.Bet,
		MasterSeed:  s.Seed,
	}
}

// Valid 檢查請求參數
func (r Request) Valid() error {
	if err := spec.ValidTrialCounts(r.TrialCounts); err != nil {
		return err
	}
	return spec.ValidBet(r.Bet)
}

// TotalRounds 所有配對的局數總和
func (r Request) TotalRounds(stages int) int64 {
	var sum int64
	for _, n := range r.TrialCounts {
		sum += int64(n)
	}
	return sum * int64(stages)
}

// Run 對一張設定表跑完整流程：缺欄檢查 -> 缺值列過濾 -> 型別轉換 -> 取樣 -> 排序。
//
// 缺欄時直接回傳 MissingColumns，不會建立任何亂數產生器。
// 任何錯誤都不回傳部分結果。
func (s *Simulator) Run(ctx context.Context, table *spec.ConfigTable, req Request) (stats.ResultTable, error) {
	if table == nil {
		return nil, errs.InvalidParameterf("nil config table")
	}
	stages, err := table.Stages()
	if err != nil {
		return nil, err
	}
	log := s.log.With(slog.String("table", table.Name))
	return s.run(ctx, log, stages, req)
}

// RunStages 對已解析的關卡列表跑模擬（順序即子種子分配順序）。
func (s *Simulator) RunStages(ctx context.Context, stages []spec.StageConfig, req Request) (stats.ResultTable, error) {
	return s.run(ctx, s.log, stages, req)
}

func (s *Simulator) run(ctx context.Context, log *slog.Logger, stages []spec.StageConfig, req Request) (stats.ResultTable, error) {
	if err := req.Valid(); err != nil {
		return nil, err
	}
	total := req.TotalRounds(len(stages))
	log.Info("sim start",
		slog.Int("stages", len(stages)),
		slog.Any("trial_counts", req.TrialCounts),
		slog.Int64("total_rounds", total),
		slog.Int64("seed", req.MasterSeed),
		slog.String("rng", s.cf.Name()),
		slog.Bool("analytical", s.analytical),
	)

	bar := pb.New64(total)
	switch {
	case !s.progress:
		bar.SetWriter(io.Discard)
	case s.progressW != nil:
		bar.SetWriter(s.progressW)
	default:
		bar.SetWriter(os.Stderr)
	}
	bar.Start()
	defer bar.Finish()

	master := s.cf.New(req.MasterSeed)
	out := make(stats.ResultTable, 0, len(stages)*len(req.TrialCounts))
	for _, st := range stages {
		for _, n := range req.TrialCounts {
			if err := ctx.Err(); err != nil {
				log.Warn("sim canceled", slog.Int("done", len(out)), slog.Any("err", err))
				return nil, errs.Wrap(err, "simulation canceled")
			}
			// 母種子每個配對只消耗一次，與模式無關
			sub := int64(master.UintN(subSeedBound))

			var (
				o   sampler.Outcome
				err error
			)
			if s.analytical {
				o, err = sampler.Analytical(st.Multiplier, st.PBlack, n, req.Bet)
			} else {
				o, err = sampler.StageWithSeed(s.cf, st.Multiplier, st.PBlack, n, req.Bet, sub)
			}
			if err != nil {
				return nil, errs.WrapWithExtra(err, "stage sampling failed", stageExtra(st, n))
			}
			out = append(out, stats.NewStageResult(st, o))
			bar.Add(n)
		}
	}
	out.Sort()

	log.Info("sim done",
		slog.Int("results", len(out)),
		slog.Duration("used", time.Since(bar.StartTime())),
	)
	return out, nil
}

func stageExtra(st spec.StageConfig, n int) string {
	return "stage=" + strconv.Itoa(st.Stage) + " trials=" + strconv.Itoa(n)
}
