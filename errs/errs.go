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

package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLevel : Error 分級，使最上層理解問題嚴重程度
type ErrLevel uint8

const (
	None ErrLevel = iota
	Fatal
	Warn
	Log
)

var errLvMap = map[ErrLevel]string{
	None:  "",
	Fatal: "fatal",
	Warn:  "warn",
	Log:   "log",
}

func ErrLv(errlv ErrLevel) string {
	if str, ok := errLvMap[errlv]; ok {
		return str
	}
	return ""
}

// Code 標示錯誤種類（與分級正交）。
//
// 分級告訴上層「多嚴重」，Code 告訴上層「是哪一類輸入問題」：
//   - MissingColumns：設定表缺少必要欄位（表層級，一次回報所有缺少的欄位）
//   - InvalidConfigValue：某列必要欄位無法轉型
//   - InvalidParameter：取樣器或請求收到越界 / 非正值參數
type Code uint8

const (
	CodeNone Code = iota
	CodeMissingColumns
	CodeInvalidConfigValue
	CodeInvalidParameter
)

var codeMap = map[Code]string{
	CodeNone:               "",
	CodeMissingColumns:     "missing_columns",
	CodeInvalidConfigValue: "invalid_config_value",
	CodeInvalidParameter:   "invalid_parameter",
}

func (c Code) String() string {
	return codeMap[c]
}

// 供 errors.Is 比對用的哨兵值，只比對 Code。
var (
	ErrMissingColumns     = &E{Code: CodeMissingColumns, Message: "missing columns", ErrLv: Warn}
	ErrInvalidConfigValue = &E{Code: CodeInvalidConfigValue, Message: "invalid config value", ErrLv: Warn}
	ErrInvalidParameter   = &E{Code: CodeInvalidParameter, Message: "invalid parameter", ErrLv: Warn}
)

// E 是統一的錯誤型別。
// Message 為主訊息；Extra 為呼叫端可追加的額外上下文；
// Cause 可串接下層錯誤（wrap）；ErrLv 為錯誤分級；
// Code 為錯誤種類；Fields 為出問題的欄位名稱（例如缺少的欄位）。
type E struct {
	Message string
	Extra   string
	Cause   error
	ErrLv   ErrLevel
	Code    Code
	Fields  []string
}

// Error 實作 error 介面並回傳格式化後的錯誤訊息。
func (e *E) Error() string {
	base := fmt.Sprintf("errlv=%s %s", ErrLv(e.ErrLv), e.Message)
	if e.Code != CodeNone {
		base = fmt.Sprintf("errlv=%s code=%s %s", ErrLv(e.ErrLv), e.Code, e.Message)
	}
	if len(e.Fields) > 0 {
		base += " [" + strings.Join(e.Fields, ", ") + "]"
	}
	if e.Extra != "" {
		base += " | extra: " + e.Extra
	}
	if e.Cause != nil {
		base += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return base
}

// Unwrap 讓 errors.Is / errors.As 能夠向下展開。
func (e *E) Unwrap() error { return e.Cause }

// Is 讓 errors.Is(err, errs.ErrMissingColumns) 這類比對只看 Code。
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok || t.Code == CodeNone {
		return false
	}
	return e.Code == t.Code
}

// New 依錯誤分級與訊息建立錯誤
func New(errLv ErrLevel, msg string) *E {
	return &E{Message: msg, ErrLv: errLv}
}

func NewFatal(msg string) *E {
	return &E{Message: msg, ErrLv: Fatal}
}

func NewWarn(msg string) *E {
	return &E{Message: msg, ErrLv: Warn}
}

func NewLog(msg string) *E {
	return &E{Message: msg, ErrLv: Log}
}

func Fatalf(format string, a ...any) *E {
	return NewFatal(fmt.Sprintf(format, a...))
}

func Warnf(format string, a ...any) *E {
	return NewWarn(fmt.Sprintf(format, a...))
}

// MissingColumns 建立缺欄錯誤，fields 依必要欄位順序列出缺少的欄位。
func MissingColumns(table string, fields []string) *E {
	e := &E{
		Message: "missing columns",
		ErrLv:   Warn,
		Code:    CodeMissingColumns,
		Fields:  append([]string(nil), fields...),
	}
	if table != "" {
		e.Extra = "table=" + table
	}
	return e
}

// InvalidConfigValuef 建立轉型失敗錯誤。field 為出錯欄位。
func InvalidConfigValuef(field string, format string, a ...any) *E {
	return &E{
		Message: fmt.Sprintf(format, a...),
		ErrLv:   Warn,
		Code:    CodeInvalidConfigValue,
		Fields:  []string{field},
	}
}

// InvalidParameterf 建立參數越界錯誤。
func InvalidParameterf(format string, a ...any) *E {
	return &E{
		Message: fmt.Sprintf(format, a...),
		ErrLv:   Warn,
		Code:    CodeInvalidParameter,
	}
}

// NewWithExtra 與 New 相同，但可附加額外上下文字串（不影響主訊息）。
func NewWithExtra(errLv ErrLevel, msg string, extra string) *E {
	e := New(errLv, msg)
	e.Extra = extra
	return e
}

// Wrap 使用給定的訊息包裝底層錯誤，建立一個 *E。
//
// ErrLevel / Code 規則：
//   - 若 cause 已經是 *E，則沿用其 ErrLv 與 Code（保持原本嚴重度與種類）。
//   - 若 cause 不是本包定義的 *E（多半是標準庫或三方依賴錯誤），則 ErrLv 一律視為 Fatal。
func Wrap(cause error, msg string) *E {
	return WrapWithExtra(cause, msg, "")
}

// WrapWithExtra 使用給定的訊息與上下文包裝底層錯誤，建立一個 *E
func WrapWithExtra(cause error, msg string, extra string) *E {
	var e *E
	errLv := Fatal
	code := CodeNone
	if errors.As(cause, &e) {
		errLv = e.ErrLv
		code = e.Code
	}
	r := NewWithExtra(errLv, msg, extra)
	r.Code = code
	r.Cause = cause
	return r
}

func AsErr(err error) (*E, bool) {
	var e *E
	if errors.As(err, &e) {
		return e, true
	}
	return e, false
}
