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
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/zintix-labs/crashlab/catalog"
	"github.com/zintix-labs/crashlab/demo/demo_configs"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/server"
	"github.com/zintix-labs/crashlab/server/logger"
	"github.com/zintix-labs/crashlab/server/svrcfg"
	"github.com/zintix-labs/crashlab/spec"
)

// Lab server entrypoint. Environment variables set the defaults, flags override them.
func main() {
	cfg, err := parseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	sCfg, err := cfg.svrCfg()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := server.Run(sCfg); err != nil {
		os.Exit(1)
	}
}

type config struct {
	Addr        string   `env:"CRASHLAB_ADDR"         envDefault:":5808"`
	LogMode     string   `env:"CRASHLAB_LOG_MODE"     envDefault:"dev"`
	MaxTrials   int      `env:"CRASHLAB_MAX_TRIALS"   envDefault:"5000000"`
	CORSOrigins []string `env:"CRASHLAB_CORS_ORIGINS" envSeparator:","`
	// Presets 內建表目錄；空字串用內嵌範例
	Presets string `env:"CRASHLAB_PRESETS"`
}

func parseConfig(fs *flag.FlagSet, args []string) (*config, error) {
	cfg := new(config)
	if err := env.Parse(cfg); err != nil {
		return nil, errs.Warnf("parse env: %v", err)
	}
	cors := strings.Join(cfg.CORSOrigins, ",")

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.LogMode, "log-mode", cfg.LogMode, "log mode: dev|prod|silence")
	fs.IntVar(&cfg.MaxTrials, "max-trials", cfg.MaxTrials, "largest trial count a request may ask for")
	fs.StringVar(&cors, "cors", cors, "comma separated allowed CORS origins")
	fs.StringVar(&cfg.Presets, "presets", cfg.Presets, "directory of preset config tables (default: embedded samples)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.CORSOrigins = cfg.CORSOrigins[:0]
	for _, o := range strings.Split(cors, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}
	if _, ok := logger.ParseMode(cfg.LogMode); !ok {
		return nil, errs.InvalidParameterf("unknown log mode: %q", cfg.LogMode)
	}
	if cfg.MaxTrials < 1 {
		return nil, errs.InvalidParameterf("max trials must be >= 1, got %d", cfg.MaxTrials)
	}
	return cfg, nil
}

func (cfg *config) svrCfg() (*svrcfg.SvrCfg, error) {
	mode, _ := logger.ParseMode(cfg.LogMode)
	log, _ := logger.NewAsync(4096, mode)

	var (
		presets *catalog.Catalog
		err     error
	)
	if cfg.Presets != "" {
		presets, err = catalog.New(os.DirFS(cfg.Presets))
	} else {
		presets, err = catalog.New(demo_configs.FS)
	}
	if err != nil {
		return nil, errs.Wrap(err, "load presets failed")
	}
	return &svrcfg.SvrCfg{
		Log:         log,
		Addr:        cfg.Addr,
		Presets:     presets,
		Defaults:    spec.DefaultSimSetting(),
		MaxTrials:   cfg.MaxTrials,
		CORSOrigins: cfg.CORSOrigins,
	}, nil
}
