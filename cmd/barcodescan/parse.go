package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ericlevine/zxscan/internal/report"
	"github.com/ericlevine/zxscan/resultparser"
)

func (a *app) parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [text...]",
		Short: "Interpret a barcode payload",
		Long: `Interpret a barcode payload as a contact card (vCard), a geo: URI or a
calendar event (VEVENT). With no arguments, or "-", the payload is read
from standard input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := payload(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			output := a.cfg.Scan.Output
			if cmd.Flags().Changed("output") {
				output, _ = cmd.Flags().GetString("output")
			}
			return runParse(cmd.OutOrStdout(), output, text)
		},
	}
	cmd.Flags().StringP("output", "o", "text", "output format (text, json, yaml)")
	return cmd
}

func payload(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read payload: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func runParse(w io.Writer, output, text string) error {
	parsed := report.ParseText(text, resultparser.Default())
	if !strings.EqualFold(output, "text") {
		return report.Write(w, output, []report.Entry{{Text: text, Parsed: parsed}})
	}
	_, err := fmt.Fprintf(w, "%s\n%s\n", parsed.Type, parsed.Display)
	return err
}
