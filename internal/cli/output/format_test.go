package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{name: "table", input: "table", want: FormatTable},
		{name: "empty defaults to table", input: "", want: FormatTable},
		{name: "json uppercase", input: "JSON", want: FormatJSON},
		{name: "yml alias", input: "yml", want: FormatYAML},
		{name: "whitespace trimmed", input: "  yaml  ", want: FormatYAML},
		{name: "invalid", input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrinterColor(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, FormatTable, true).Error("boom")
	assert.Equal(t, ansiRed+"boom"+ansiReset+"\n", buf.String())

	buf.Reset()
	NewPrinter(&buf, FormatTable, false).Warning("careful")
	assert.Equal(t, "careful\n", buf.String())
}

func TestPrinterPrint(t *testing.T) {
	data := map[string]int{"samples": 3}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatJSON, false).Print(data))
		assert.JSONEq(t, `{"samples":3}`, buf.String())
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatYAML, false).Print(data))
		assert.Equal(t, "samples: 3\n", buf.String())
	})

	t.Run("table falls back to json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatTable, false).Print(data))
		assert.JSONEq(t, `{"samples":3}`, buf.String())
	})

	t.Run("table renderer", func(t *testing.T) {
		table := NewTableData("Name", "State")
		table.AddRow("primary", "healthy")

		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatTable, false).Print(table))
		assert.Contains(t, buf.String(), "NAME")
		assert.Contains(t, buf.String(), "primary")
	})

	t.Run("unknown format", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Error(t, NewPrinter(&buf, Format("xml"), false).Print(data))
	})
}
