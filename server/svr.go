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
// Package server 把模擬引擎包成 HTTP 服務（儀表板用的 JSON / 活頁簿 API）。
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/server/api"
	"github.com/zintix-labs/crashlab/server/app"
	"github.com/zintix-labs/crashlab/server/netsvr"
	"github.com/zintix-labs/crashlab/server/svrcfg"
)

// Run 是 server 套件的「組裝器（assembler）」與「啟動入口（runtime entry）」。
//
// 它負責：
//  1. 驗證輸入的 SvrCfg（包含必要依賴，例如 logger 與內建表）。
//  2. 建立 HTTP server（netsvr），監聽 SvrCfg.Addr。
//  3. 註冊路由與 middleware（api.RegisterRoutes）。
//  4. 啟動 app.Run() 並回傳停止原因。
//
// Run 不綁定任何「檔案路徑」或「環境變數」策略；所有依賴都應透過 SvrCfg 明確注入。
func Run(sCfg *svrcfg.SvrCfg) error {
	if err := sCfg.Vaild(); err != nil {
		// 防止外層傳入的logger不可用
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return RunWithSvr(sCfg, netsvr.NewChiServer(sCfg.Addr, 0))
}

// RunWithSvr 與 Run() 相同，但允許呼叫端注入自訂的 NetSvr
// （自己包裝的 adapter、額外的 server option、或既有框架的生命週期）。
//
// svr 必須非 nil，且若是 ChiAdapter 會要求 Ready() 為 true。
func RunWithSvr(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) error {
	if err := sCfg.Vaild(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if svr == nil {
		err := errs.NewFatal("svr is required")
		sCfg.Log.Error(err.Error())
		return err
	}
	addr := ""
	if s, ok := svr.(*netsvr.ChiAdapter); ok {
		if !s.Ready() {
			err := errs.NewFatal("default server is not ready")
			sCfg.Log.Error(err.Error())
			return err
		}
		addr = s.Address()
	}

	// 註冊 Api
	if err := api.RegisterRoutes(svr, sCfg); err != nil {
		sCfg.Log.Error("register routes failed", slog.Any("err", err))
		return err
	}

	// 運行
	a := app.NewWith(sCfg.Log, svr)
	sCfg.Log.Info("[crashlab] listening", slog.String("addr", addr), slog.Int("presets", sCfg.Presets.Len()))
	if err := a.Run(); err != nil {
		sCfg.Log.Error("app stopped", slog.Any("err", err))
		return err
	}
	return nil
}

// NewHandler 組出與 Run 相同路由的 http.Handler，但不監聽任何位址。
// 適合掛進既有服務或交給 httptest。
func NewHandler(sCfg *svrcfg.SvrCfg) (http.Handler, error) {
	if err := sCfg.Vaild(); err != nil {
		return nil, err
	}
	svr := netsvr.NewChiServer(sCfg.Addr, 0)
	if err := api.RegisterRoutes(svr, sCfg); err != nil {
		return nil, err
	}
	return svr.Handler(), nil
}
