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
package api

import (
	v1 "github.com/zintix-labs/crashlab/server/api/v1"
	"github.com/zintix-labs/crashlab/server/netsvr"
	"github.com/zintix-labs/crashlab/server/netsvr/middleware"
	"github.com/zintix-labs/crashlab/server/svrcfg"
)

// RegisterRoutes 註冊 middleware 與 v1 api。sCfg 必須已通過 Vaild。
func RegisterRoutes(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) error {
	registerMiddleware(svr, sCfg)   // 1. 註冊 middleware
	return registerV1API(svr, sCfg) // 2. 註冊 v1 api
}

// 註冊 middleware
func registerMiddleware(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(sCfg.Log))
	svr.Use(middleware.Recover(sCfg.Log))
	svr.Use(middleware.CORS(sCfg.CORSOrigins))
	svr.Use(middleware.Compression)
}

// 註冊 v1 api
func registerV1API(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) error {
	s, err := v1.NewSimHandler(sCfg)
	if err != nil {
		return err
	}
	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Get("/presets", s.Presets)

		vOne.Get("/sim", s.Sim)
		vOne.Post("/sim", s.Sim)
		vOne.Post("/sim/upload", s.Upload)
		vOne.Post("/sim/xlsx", s.XLSX)

		vOne.Post("/ev", v1.EV)
		vOne.Post("/ev/fit", v1.Fit)
	})
	return nil
}
