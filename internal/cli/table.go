package cli

import (
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// writeTable renders rows under headers, left aligned.
func writeTable(w io.Writer, headers []string, rows [][]string) error {
	t := tablewriter.NewWriter(w)
	defer func() { _ = t.Close() }()

	t.Header(headers)
	t.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	if err := t.Bulk(rows); err != nil {
		return err
	}
	return t.Render()
}
