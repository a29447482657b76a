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
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zintix-labs/crashlab"
	"github.com/zintix-labs/crashlab/catalog"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/sdk/core"
	"github.com/zintix-labs/crashlab/server/logger"
	"github.com/zintix-labs/crashlab/spec"
	"github.com/zintix-labs/crashlab/stats"
	"github.com/zintix-labs/crashlab/tableio"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const defaultOutput = "SimResults.xlsx"

type config struct {
	input      string
	output     string
	rounds     string
	seed       int64
	bet        float64
	rng        string
	analytical bool
	settingYML string
	progress   bool
	pprof      string
	quiet      bool
	verbose    bool

	// set 記錄使用者明確給過的旗標（以長名稱記），用來決定是否覆蓋設定檔
	set map[string]bool
}

// 短旗標 -> 長旗標
var aliases = map[string]string{
	"i": "input",
	"o": "output",
	"r": "rounds",
	"s": "seed",
	"b": "bet",
}

func parseFlags(args []string, stderr io.Writer) (*config, error) {
	def := spec.DefaultSimSetting()
	cfg := &config{set: make(map[string]bool)}

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	for _, name := range []string{"i", "input"} {
		fs.StringVar(&cfg.input, name, "", "config CSV, workbook (.xlsx/.xlsm) or directory of them (required)")
	}
	for _, name := range []string{"o", "output"} {
		fs.StringVar(&cfg.output, name, defaultOutput, "output file: .xlsx, .csv, .json, .yaml")
	}
	for _, name := range []string{"r", "rounds"} {
		fs.StringVar(&cfg.rounds, name, joinInts(def.TrialCounts), "trial counts, comma or space separated")
	}
	for _, name := range []string{"s", "seed"} {
		fs.Int64Var(&cfg.seed, name, def.Seed, "master seed")
	}
	for _, name := range []string{"b", "bet"} {
		fs.Float64Var(&cfg.bet, name, def.Bet, "bet per round (> 0)")
	}
	fs.StringVar(&cfg.rng, "rng", def.RNG, "random generator: pcg64|pcg32")
	fs.BoolVar(&cfg.analytical, "analytical", false, "use closed-form statistics instead of sampling")
	fs.StringVar(&cfg.settingYML, "config", "", "YAML sim setting; explicit flags override it")
	fs.BoolVar(&cfg.progress, "pb", false, "show progress bar")
	fs.StringVar(&cfg.pprof, "p", "", "pprof: '', cpu, heap, allocs")
	fs.BoolVar(&cfg.quiet, "q", false, "do not print result tables")
	fs.BoolVar(&cfg.verbose, "v", false, "debug logs to stderr")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, errs.InvalidParameterf("unexpected arguments: %v", fs.Args())
	}
	fs.Visit(func(f *flag.Flag) {
		name := f.Name
		if long, ok := aliases[name]; ok {
			name = long
		}
		cfg.set[name] = true
	})
	if cfg.input == "" {
		return nil, errs.InvalidParameterf("-i/-input is required")
	}
	return cfg, nil
}

// setting 以預設值為底，依序套用設定檔與明確給過的旗標
func (cfg *config) setting() (spec.SimSetting, error) {
	s := spec.DefaultSimSetting()
	if cfg.settingYML != "" {
		data, err := os.ReadFile(cfg.settingYML)
		if err != nil {
			return spec.SimSetting{}, errs.Warnf("can not read setting file: %v", err)
		}
		loaded, err := spec.GetSimSettingByYAML(data)
		if err != nil {
			return spec.SimSetting{}, errs.WrapWithExtra(err, "invalid setting file", "file="+cfg.settingYML)
		}
		s = *loaded
	}
	if cfg.set["rounds"] {
		tc, err := spec.ParseTrialCounts(cfg.rounds)
		if err != nil {
			return spec.SimSetting{}, err
		}
		s.TrialCounts = tc
	}
	if cfg.set["seed"] {
		s.Seed = cfg.seed
	}
	if cfg.set["bet"] {
		s.Bet = cfg.bet
	}
	if cfg.set["rng"] {
		s.RNG = cfg.rng
	}
	if cfg.set["analytical"] {
		s.Analytical = cfg.analytical
	}
	if err := s.Valid(); err != nil {
		return spec.SimSetting{}, err
	}
	return s, nil
}

// run 載入所有設定表，逐張模擬（第一個錯誤就停），最後寫出結果檔。
func run(ctx context.Context, cfg *config, out io.Writer) error {
	s, err := cfg.setting()
	if err != nil {
		return err
	}
	srcs, err := catalog.Load(cfg.input)
	if err != nil {
		return err
	}
	cf, err := core.FactoryByName(s.RNG)
	if err != nil {
		return err
	}
	mode := logger.ModeSilence
	if cfg.verbose {
		mode = logger.ModeDev
	}
	sim := crashlab.New(
		crashlab.WithFactory(cf),
		crashlab.WithLogger(logger.NewWriterLogger(mode, os.Stderr)),
		crashlab.WithProgress(cfg.progress),
		crashlab.WithProgressWriter(os.Stderr),
		crashlab.WithAnalytical(s.Analytical),
	)

	tables := make([]*spec.ConfigTable, len(srcs))
	for i, src := range srcs {
		tables[i] = src.Table
	}

	p := message.NewPrinter(language.English)
	if !cfg.quiet {
		p.Fprintf(out, "[TABLES:%d] [ROUNDS:%v] [SEED:%d] [BET:%v] [RNG:%s] [ANALYTICAL:%t]\n",
			len(tables), s.TrialCounts, s.Seed, s.Bet, cf.Name(), s.Analytical)
	}

	start := time.Now()
	trs, err := sim.RunAll(ctx, tables, crashlab.RequestFromSetting(s), crashlab.FailFast)
	if err != nil {
		return err
	}
	used := time.Since(start)

	named := make([]stats.NamedTable, len(trs))
	rounds := 0
	for i, tr := range trs {
		named[i] = stats.NamedTable{Name: srcs[i].ResultName, Results: tr.Results}
		for _, r := range tr.Results {
			rounds += r.Rounds
		}
	}
	if !cfg.quiet {
		for _, nt := range named {
			nt.StdOut(out)
		}
		fmt.Fprint(out, stats.FormatDuration(used, rounds))
	}

	abs, err := tableio.WriteFile(cfg.output, named)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "[OK] Wrote %s\n", abs)
	return nil
}

func joinInts(xs []int) string {
	ss := make([]string, len(xs))
	for i, x := range xs {
		ss[i] = strconv.Itoa(x)
	}
	return strings.Join(ss, ",")
}
