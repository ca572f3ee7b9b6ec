package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

type outputMode struct {
	json bool
	out  io.Writer
}

func (o outputMode) printJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("format json: %w", err)
	}
	_, err = fmt.Fprintln(o.out, string(data))
	return err
}

func (o outputMode) table(rows [][]string) error {
	w := tabwriter.NewWriter(o.out, 2, 4, 2, ' ', 0)
	for _, row := range rows {
		fmt.Fprintln(w, joinRow(row))
	}
	return w.Flush()
}

func joinRow(row []string) string {
	if len(row) == 0 {
		return ""
	}
	out := row[0]
	for i := 1; i < len(row); i++ {
		out += "\t" + row[i]
	}
	return out
}
