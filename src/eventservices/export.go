package eventservices

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"tradepanel/src/eventmodels"
)

// ExportPositionsCSV writes the open positions as CSV, used by the
// dashboard's export action.
func ExportPositionsCSV(w io.Writer, positions []eventmodels.Position) error {
	out := make([]*eventmodels.Position, 0, len(positions))
	for i := range positions {
		out = append(out, &positions[i])
	}

	if err := gocsv.Marshal(&out, w); err != nil {
		return fmt.Errorf("ExportPositionsCSV: %w", err)
	}

	return nil
}
