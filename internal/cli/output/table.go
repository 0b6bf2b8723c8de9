package output

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// TableRenderer is implemented by results that print as a table.
type TableRenderer interface {
	Headers() []string
	Rows() [][]string
}

// newTable returns a borderless, left-aligned table. sep separates
// columns; headers are upper-cased when autoHeaders is set.
func newTable(w io.Writer, sep string, autoHeaders bool) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(autoHeaders)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetCenterSeparator("")
	t.SetColumnSeparator(sep)
	t.SetRowSeparator("")
	t.SetHeaderLine(false)
	t.SetBorder(false)
	t.SetTablePadding("  ")
	t.SetNoWhiteSpace(true)
	return t
}

// PrintTable writes data as a column table.
func PrintTable(w io.Writer, data TableRenderer) error {
	t := newTable(w, "", true)
	t.SetHeader(data.Headers())
	t.AppendBulk(data.Rows())
	t.Render()
	return nil
}

// PrintKeyValue writes "key: value" lines aligned on the colon.
func PrintKeyValue(w io.Writer, pairs [][2]string) error {
	t := newTable(w, ":", false)
	for _, p := range pairs {
		t.Append([]string{p[0], p[1]})
	}
	t.Render()
	return nil
}

// TableData is an ad-hoc TableRenderer.
type TableData struct {
	headers []string
	rows    [][]string
}

func NewTableData(headers ...string) *TableData {
	return &TableData{headers: headers}
}

func (t *TableData) AddRow(row ...string) {
	t.rows = append(t.rows, row)
}

func (t *TableData) Headers() []string { return t.headers }
func (t *TableData) Rows() [][]string  { return t.rows }
