package sim

import (
	"encoding/json"
	"strings"

	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/errors"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/gcode"
)

// Intent is one structured move request, the JSON alternative to a raw
// G-code line. Absent coordinates leave the axis unchanged; an absent
// feed keeps the sticky value.
type Intent struct {
	Code string   `json:"code"`
	X    *float64 `json:"x,omitempty"`
	Y    *float64 `json:"y,omitempty"`
	Z    *float64 `json:"z,omitempty"`
	F    *float64 `json:"f,omitempty"`
}

// words lowers the intent onto the word pipeline. Codes outside
// G0..G3 report false.
func (it Intent) words() ([]gcode.Word, bool) {
	var motion float64
	switch strings.ToUpper(strings.TrimSpace(it.Code)) {
	case "G0":
		motion = 0
	case "G1":
		motion = 1
	case "G2":
		motion = 2
	case "G3":
		motion = 3
	default:
		return nil, false
	}

	words := make([]gcode.Word, 0, 5)
	words = append(words, gcode.Word{Letter: 'G', Value: motion})
	if it.F != nil {
		words = append(words, gcode.Word{Letter: 'F', Value: *it.F})
	}
	if it.X != nil {
		words = append(words, gcode.Word{Letter: 'X', Value: *it.X})
	}
	if it.Y != nil {
		words = append(words, gcode.Word{Letter: 'Y', Value: *it.Y})
	}
	if it.Z != nil {
		words = append(words, gcode.Word{Letter: 'Z', Value: *it.Z})
	}
	return words, true
}

// ParseIntents decodes a JSON array of move intents.
func ParseIntents(data []byte) ([]Intent, error) {
	var intents []Intent
	if err := json.Unmarshal(data, &intents); err != nil {
		return nil, errors.IntentDecodeError(err)
	}
	return intents, nil
}
