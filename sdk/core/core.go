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

// Package core 定義模擬器使用的亂數核心（PRNG）與其工廠。
//
// crashlab 裡有兩種角色的亂數來源，且必須彼此獨立：
//  1. 母種子產生器（master）：每次模擬請求建立一顆，依固定順序為每個 (stage, trials) 配對抽出子種子。
//  2. 取樣器（sampler）：每個配對以子種子建立一顆全新的 PRNG，只在該次取樣內使用。
//
// 兩者都透過 PRNGFactory.New(seed) 建立，因此只要 seed 與演算法相同，結果就可重現。
package core

import (
	"strings"

	"github.com/zintix-labs/crashlab/errs"
)

// PRNG 定義 Core 所需的亂數來源，需同時支援取樣與狀態保存/還原。
type PRNG interface {
	RAND
	Restorable
}

// Restorable 定義可快照與還原的狀態介面。
type Restorable interface {
	// Snapshot 回傳可用於還原的序列化狀態。
	Snapshot() ([]byte, error)
	// Restore 依序列化狀態還原 PRNG 內部狀態。
	Restore([]byte) error
}

// RAND 定義核心亂數取樣能力。
//
// Float64 的精度（32-bit vs 53-bit）由實作決定，PCG32 與 PCG64 在這點上不同。
type RAND interface {
	// Uint64 回傳非負 uint64 亂數。
	Uint64() uint64
	// Float64 回傳 [0,1) 的浮點亂數。
	Float64() float64
	// UintN 回傳 [0,max) 的 uint 亂數，若 max == 0 回傳 0。
	UintN(uint) uint
	// IntN 回傳 [0,max) 的 int 亂數，若 max <= 0 回傳 -1。
	IntN(int) int
}

type PRNGFactory interface {
	// New 以指定 seed 建立新的 PRNG。
	//
	// 合約：在同一個實作與同一個版本下，New(seed) 必須是決定性的，
	// 相同的 seed 必須產生相同的初始內部狀態與輸出序列。
	New(int64) PRNG
	// Name 回傳演算法名稱，用於紀錄與報表。
	Name() string
}

const (
	NamePCG64 = "pcg64"
	NamePCG32 = "pcg32"
)

// DefaultPRNG 實作預設的 PRNGFactory（PCG64）
type DefaultPRNG struct{}

func (d *DefaultPRNG) New(seed int64) PRNG {
	return newPCG64WithSeed(seed)
}

func (d *DefaultPRNG) Name() string { return NamePCG64 }

func Default() *DefaultPRNG {
	return &DefaultPRNG{}
}

// PCG32Factory 以 PCG32 建立 PRNG。Float64 只有 32-bit 精度。
type PCG32Factory struct{}

func (f *PCG32Factory) New(seed int64) PRNG {
	return newPCG32WithSeed(seed)
}

func (f *PCG32Factory) Name() string { return NamePCG32 }

// FactoryByName 依名稱取得工廠，空字串視為預設（pcg64）。
func FactoryByName(name string) (PRNGFactory, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NamePCG64:
		return Default(), nil
	case NamePCG32:
		return &PCG32Factory{}, nil
	default:
		return nil, errs.InvalidParameterf("unknown rng: %q (want %s|%s)", name, NamePCG64, NamePCG32)
	}
}

// Core 封裝 PRNG，並提供常用取樣方法。
type Core struct {
	PRNG
}

// New 允許使用外部自實現的 PRNG 建立 Core。
func New(rng PRNG) *Core {
	return &Core{rng}
}

// Hit 進行一次 Bernoulli 試驗：均勻亂數嚴格小於 p 視為成功。
//
// p <= 0 永遠失敗、p >= 1 永遠成功，但兩者都仍會消耗一次亂數，
// 以保持不同 p 下的序列消耗量一致。
func (c *Core) Hit(p float64) bool {
	return c.Float64() < p
}
