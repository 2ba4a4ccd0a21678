// Move intent decoding tests
//
// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package sim

import (
	"testing"

	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/errors"
)

func TestParseIntents(t *testing.T) {
	data := []byte(`[
		{"code": "G0", "z": 10},
		{"code": "G1", "x": 30, "y": 12.5, "f": 600},
		{"code": "G1", "x": 0}
	]`)

	intents, err := ParseIntents(data)
	if err != nil {
		t.Fatalf("ParseIntents: %v", err)
	}
	if len(intents) != 3 {
		t.Fatalf("expected 3 intents, got %d", len(intents))
	}

	first := intents[0]
	if first.Code != "G0" {
		t.Errorf("code = %q, want G0", first.Code)
	}
	if first.Z == nil || *first.Z != 10 {
		t.Errorf("z = %v, want 10", first.Z)
	}
	if first.X != nil || first.Y != nil || first.F != nil {
		t.Error("absent fields should stay nil")
	}

	second := intents[1]
	if second.F == nil || *second.F != 600 {
		t.Errorf("f = %v, want 600", second.F)
	}
	if second.Y == nil || *second.Y != 12.5 {
		t.Errorf("y = %v, want 12.5", second.Y)
	}
}

func TestParseIntentsMalformed(t *testing.T) {
	_, err := ParseIntents([]byte(`{"not": "an array"}`))
	if err == nil {
		t.Fatal("expected error for non-array payload")
	}
	if !errors.Is(err, errors.ErrInputIntent) {
		t.Errorf("expected intent decode error code, got %v", err)
	}

	_, err = ParseIntents([]byte(`[{`))
	if err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}

func TestIntentWords(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		intent  Intent
		ok      bool
		letters string
	}{
		{"rapid", Intent{Code: "G0", X: f(1), Z: f(2)}, true, "GXZ"},
		{"linear with feed", Intent{Code: "G1", X: f(1), F: f(600)}, true, "GFX"},
		{"lowercase", Intent{Code: "g2", Y: f(3)}, true, "GY"},
		{"padded", Intent{Code: " G3 ", X: f(1)}, true, "GX"},
		{"spindle", Intent{Code: "M3"}, false, ""},
		{"offset set", Intent{Code: "G92", X: f(0)}, false, ""},
		{"empty", Intent{}, false, ""},
	}

	for _, tt := range tests {
		words, ok := tt.intent.words()
		if ok != tt.ok {
			t.Errorf("%s: ok = %v, want %v", tt.name, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		var letters []byte
		for _, w := range words {
			letters = append(letters, w.Letter)
		}
		if string(letters) != tt.letters {
			t.Errorf("%s: letters = %s, want %s", tt.name, letters, tt.letters)
		}
	}
}

func TestIntentWordsValues(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	words, ok := Intent{Code: "G1", X: f(42.5), F: f(600)}.words()
	if !ok {
		t.Fatal("expected G1 to lower")
	}
	for _, w := range words {
		switch w.Letter {
		case 'G':
			if w.Value != 1 {
				t.Errorf("G value = %v, want 1", w.Value)
			}
		case 'X':
			if w.Value != 42.5 {
				t.Errorf("X value = %v, want 42.5", w.Value)
			}
		case 'F':
			if w.Value != 600 {
				t.Errorf("F value = %v, want 600", w.Value)
			}
		}
	}
}
