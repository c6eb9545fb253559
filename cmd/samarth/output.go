package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// report prints an analysis result as JSON or as a metric table. A failed
// analysis is returned as an error after any JSON output.
func report(cmd *cobra.Command, asJSON bool, v any, success bool, errMsg string, pairs func() [][2]string) error {
	if asJSON {
		if err := writeJSON(cmd, v); err != nil {
			return err
		}
	}
	if !success {
		return fmt.Errorf("analysis failed: %s", errMsg)
	}
	if !asJSON {
		fmt.Fprintln(cmd.OutOrStdout(), renderPairs(pairs()))
	}
	return nil
}
