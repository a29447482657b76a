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
	"testing"
)

func TestIsMatchesCode(t *testing.T) {
	err := MissingColumns("Config_A", []string{"P_black"})
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns match")
	}
	if errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("unexpected ErrInvalidParameter match")
	}
	if !strings.Contains(err.Error(), "P_black") || !strings.Contains(err.Error(), "Config_A") {
		t.Fatalf("message should name field and table: %s", err.Error())
	}
}

func TestWrapKeepsLevelAndCode(t *testing.T) {
	base := InvalidParameterf("bet must be > 0, got %v", -1.0)
	w := Wrap(base, "stage 3")
	if w.ErrLv != Warn || w.Code != CodeInvalidParameter {
		t.Fatalf("wrap lost level/code: %+v", w)
	}
	if !errors.Is(w, ErrInvalidParameter) {
		t.Fatalf("expected wrapped error to match ErrInvalidParameter")
	}
	outer := fmt.Errorf("outer: %w", w)
	if e, ok := AsErr(outer); !ok || e.Code != CodeInvalidParameter {
		t.Fatalf("AsErr failed through fmt wrap")
	}
}

func TestWrapForeignIsFatal(t *testing.T) {
	w := Wrap(errors.New("disk"), "read")
	if w.ErrLv != Fatal || w.Code != CodeNone {
		t.Fatalf("foreign cause should be fatal without code: %+v", w)
	}
	if errors.Is(w, ErrMissingColumns) {
		t.Fatalf("codeless error should not match sentinel")
	}
}
