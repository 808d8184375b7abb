package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/praetorian-inc/perimeter/pkg/diagnostic"
	"github.com/praetorian-inc/perimeter/pkg/sarif"
	"github.com/praetorian-inc/perimeter/pkg/types"
)

// validateOutputFlags rejects bad --format and --color values before any
// work is done.
func validateOutputFlags(format, colorMode string) error {
	switch format {
	case "human", "json", "sarif":
	default:
		return fmt.Errorf("unknown format %q (want human, json or sarif)", format)
	}
	switch colorMode {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("unknown color mode %q (want auto, always or never)", colorMode)
	}
	return nil
}

// writeReport writes report to out in the requested format.
func writeReport(out io.Writer, report *types.Report, format, colorMode string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "sarif":
		data, err := sarif.FromReport(report).ToJSON()
		if err != nil {
			return fmt.Errorf("encoding SARIF: %w", err)
		}
		_, err = fmt.Fprintf(out, "%s\n", data)
		return err
	default:
		f, _ := out.(*os.File)
		r := diagnostic.NewRenderer(out, diagnostic.ColorEnabled(colorMode, f), report.Root)
		return r.RenderReport(report)
	}
}
