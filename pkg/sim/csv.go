package sim

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/errors"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/pool"
)

// csvHeader names the move-list CSV columns. The records carry the
// same fields as the JSON moves.
var csvHeader = []string{
	"line", "kind",
	"start_x", "start_y", "start_z",
	"end_x", "end_y", "end_z",
	"feed", "length", "time",
	"center_x", "center_y", "center_z",
	"synthetic",
}

// WriteCSV re-serializes the move list as CSV, one row per move.
func WriteCSV(w io.Writer, moves []Move) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.ExportError(err)
	}

	rowp := pool.GetStringSlice()
	defer pool.PutStringSlice(rowp)
	for range csvHeader {
		*rowp = append(*rowp, "")
	}
	row := *rowp

	for _, mv := range moves {
		row[0] = strconv.Itoa(mv.Line)
		row[1] = mv.Kind.String()
		row[2] = formatCoord(mv.Start.X)
		row[3] = formatCoord(mv.Start.Y)
		row[4] = formatCoord(mv.Start.Z)
		row[5] = formatCoord(mv.End.X)
		row[6] = formatCoord(mv.End.Y)
		row[7] = formatCoord(mv.End.Z)
		row[8] = formatCoord(mv.Feed)
		row[9] = formatCoord(mv.Length)
		row[10] = formatCoord(mv.Time)
		if mv.Center != nil {
			row[11] = formatCoord(mv.Center.X)
			row[12] = formatCoord(mv.Center.Y)
			row[13] = formatCoord(mv.Center.Z)
		} else {
			row[11], row[12], row[13] = "", "", ""
		}
		row[14] = strconv.FormatBool(mv.Synthetic)

		if err := cw.Write(row); err != nil {
			return errors.ExportError(err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.ExportError(err)
	}
	return nil
}

// CSV renders the move list to a byte slice.
func CSV(moves []Move) ([]byte, error) {
	buf := pool.GetByteBuffer()
	defer pool.PutByteBuffer(buf)

	if err := WriteCSV(buf, moves); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
