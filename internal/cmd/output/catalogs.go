package output

import (
	"io"
	"strconv"
	"strings"

	"github.com/agentstation/catalogd/pkg/catalogs"
)

// CatalogsData renders catalog summaries as rows. Wide output adds the
// property keys.
func CatalogsData(summaries []catalogs.Summary, wide bool) Data {
	fields := []string{"name", "connector", "fingerprint", "properties"}
	if wide {
		fields = append(fields, "property_keys")
	}
	headers := make([]string, len(fields))
	for i, f := range fields {
		headers[i] = Header(f)
	}

	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		fp := s.Fingerprint.Short()
		if wide {
			fp = s.Fingerprint.String()
		}
		row := []string{s.Name, s.Connector, fp, strconv.Itoa(len(s.PropertyKeys))}
		if wide {
			row = append(row, strings.Join(s.PropertyKeys, ", "))
		}
		rows = append(rows, row)
	}

	align := []Align{AlignLeft, AlignLeft, AlignLeft, AlignRight}
	if wide {
		align = append(align, AlignLeft)
	}
	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// WriteCatalogs writes summaries to w in format.
func WriteCatalogs(w io.Writer, summaries []catalogs.Summary, format Format) error {
	var data any = summaries
	if format.Tabular() {
		data = CatalogsData(summaries, format == FormatWide)
	}
	return NewFormatter(format).Format(w, data)
}
