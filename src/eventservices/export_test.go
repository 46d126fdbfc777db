package eventservices

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradepanel/src/eventmodels"
)

func TestExportPositionsCSV(t *testing.T) {
	positions := []eventmodels.Position{
		{ID: "pos-1", Symbol: "EURUSD", Type: "buy", Volume: 0.1, OpenPrice: 1.1, Profit: 12.5},
		{ID: "pos-2", Symbol: "GBPUSD", Type: "sell", Volume: 0.2, OpenPrice: 1.3, Profit: -4.0},
	}

	var buf bytes.Buffer
	require.Nil(t, ExportPositionsCSV(&buf, positions))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	assert.Contains(t, lines[0], "symbol")
	assert.Contains(t, lines[0], "open_price")
	assert.Contains(t, lines[1], "EURUSD")
	assert.Contains(t, lines[2], "GBPUSD")
}
