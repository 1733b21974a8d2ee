package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// outputFormat specifies how to render CLI output.
type outputFormat string

const (
	outputTable outputFormat = "table"
	outputJSON  outputFormat = "json"
	outputYAML  outputFormat = "yaml"
	outputCSV   outputFormat = "csv"
)

func parseOutputFormat(s string) (outputFormat, error) {
	switch strings.ToLower(s) {
	case "table", "":
		return outputTable, nil
	case "json":
		return outputJSON, nil
	case "yaml":
		return outputYAML, nil
	case "csv":
		return outputCSV, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (supported: table, json, yaml, csv)", s)
	}
}

// printOutput renders data in the requested format. Table and csv output use
// headers and rows; json and yaml serialize data directly.
func printOutput(w io.Writer, flag string, data any, headers []string, rows [][]string) error {
	format, err := parseOutputFormat(flag)
	if err != nil {
		return err
	}
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	case outputCSV:
		return printCSV(w, headers, rows)
	default:
		return printTable(w, headers, rows)
	}
}

// table reports whether the selected output is the human-readable table.
func (c *cli) table() bool {
	format, err := parseOutputFormat(c.outputFlag)
	return err == nil && format == outputTable
}

func printTable(w io.Writer, headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(headers, "\t")))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func printCSV(w io.Writer, headers []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	return cw.WriteAll(rows)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
