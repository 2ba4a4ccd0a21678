// Package sim drives the toolpath simulation: it feeds G-code lines or
// structured move intents through the modal interpreter, resolves arcs,
// times every move, validates it against the machine envelope and
// assembles the final report.
package sim

import (
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/geom"
)

// Kind classifies a resolved move.
type Kind int

const (
	KindRapid Kind = iota
	KindLinear
	KindArcCW
	KindArcCCW
	KindDwell
)

func (k Kind) String() string {
	switch k {
	case KindRapid:
		return "rapid"
	case KindLinear:
		return "linear"
	case KindArcCW:
		return "arc_cw"
	case KindArcCCW:
		return "arc_ccw"
	case KindDwell:
		return "dwell"
	}
	return "unknown"
}

// Cutting reports whether the kind removes material.
func (k Kind) Cutting() bool {
	switch k {
	case KindLinear, KindArcCW, KindArcCCW:
		return true
	}
	return false
}

// MarshalJSON encodes the kind as its string name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// Move is one resolved motion record. Moves are created once by the
// simulation pass and never mutated; the report owns them.
type Move struct {
	Line      int        `json:"line"`
	Kind      Kind       `json:"kind"`
	Start     geom.Vec3  `json:"start"`
	End       geom.Vec3  `json:"end"`
	Feed      float64    `json:"feed,omitempty"`
	Center    *geom.Vec3 `json:"center,omitempty"`
	Length    float64    `json:"length"`
	Time      float64    `json:"time"`
	Synthetic bool       `json:"synthetic,omitempty"`
}
