package util

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// Print writes v as json or yaml. For the table format writeTable
// receives a tabwriter which is flushed afterwards.
func Print(w io.Writer, format string, v any, writeTable func(tw *tabwriter.Writer)) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case OutputTable, "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		writeTable(tw)
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
