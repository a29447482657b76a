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
// Package demo 組裝內建範例設定表，給 cmd/svr 與測試直接使用。
package demo

import (
	"github.com/zintix-labs/crashlab/catalog"
	"github.com/zintix-labs/crashlab/demo/demo_configs"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/server/logger"
	"github.com/zintix-labs/crashlab/server/svrcfg"
	"github.com/zintix-labs/crashlab/spec"
)

// NewCatalog 以內建範例建立目錄（Config_chosen_moment、Config_first_attempt）
func NewCatalog() (*catalog.Catalog, error) {
	return catalog.New(demo_configs.FS)
}

// NewServerConfig 以內建範例與預設參數組出伺服器設定
func NewServerConfig() (*svrcfg.SvrCfg, error) {
	c, err := NewCatalog()
	if err != nil {
		return nil, errs.Wrap(err, "new demo catalog failed")
	}
	scfg := &svrcfg.SvrCfg{
		Log:      logger.NewDefaultAsyncLogger(logger.ModeDev),
		Presets:  c,
		Defaults: spec.DefaultSimSetting(),
	}
	return scfg, nil
}
