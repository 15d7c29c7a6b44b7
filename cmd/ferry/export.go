package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ferry/internal/diagfmt"
	"ferry/internal/driver"
	"ferry/internal/export"
	"ferry/internal/typespec"
)

var (
	exportOut     string
	exportDump    bool
	exportJobs    int
	exportVerbose bool
	exportFormat  string
)

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "directory for .tspec descriptor artifacts")
	exportCmd.Flags().BoolVar(&exportDump, "dump", false, "print decoded descriptors for every exported variable")
	exportCmd.Flags().IntVar(&exportJobs, "jobs", 0, "units exported in parallel (0 = one per CPU)")
	exportCmd.Flags().BoolVar(&exportVerbose, "verbose", false, "log per-unit progress")
	exportCmd.Flags().StringVar(&exportFormat, "format", "pretty", "diagnostic format (pretty|json)")
}

var exportCmd = &cobra.Command{
	Use:   "export [unit.toml...]",
	Short: "Validate unit manifests and emit type descriptors",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(exportFormat)
	switch format {
	case "pretty", "json":
		// supported
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", exportFormat)
	}

	logger := zap.NewNop()
	if exportVerbose {
		dev, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		logger = dev
	}
	defer logger.Sync() //nolint:errcheck

	units := make([]*driver.Unit, 0, len(args))
	for _, path := range args {
		u, err := driver.LoadUnit(path)
		if err != nil {
			return err
		}
		units = append(units, u)
	}

	if err := driver.ExportUnits(cmd.Context(), units, exportJobs, logger); err != nil {
		return err
	}

	failed := 0
	for _, u := range units {
		if u.Bag.Len() > 0 {
			if format == "json" {
				if err := diagfmt.JSON(cmd.ErrOrStderr(), u.Bag, u.Files, diagfmt.JSONOpts{IncludeNotes: true}); err != nil {
					return err
				}
			} else {
				diagfmt.Pretty(cmd.ErrOrStderr(), u.Bag, u.Files, diagfmt.PrettyOpts{
					Color:      colorEnabled(cmd),
					ShowNotes:  true,
					ShowSource: true,
				})
			}
		}
		if u.Bag.HasErrors() {
			failed++
			continue
		}
		if exportOut != "" {
			if err := driver.WriteArtifacts(u, exportOut); err != nil {
				return err
			}
		}
		if exportDump {
			if err := dumpUnit(cmd.OutOrStdout(), u); err != nil {
				return err
			}
		}
	}
	if failed > 0 {
		cmd.SilenceUsage = true
		return fmt.Errorf("%d of %d units failed", failed, len(units))
	}
	return nil
}

// dumpUnit round-trips every exported variable through the descriptor codec
// and prints the decoded shape, which doubles as an end-to-end check of the
// blobs the unit would emit.
func dumpUnit(w io.Writer, u *driver.Unit) error {
	fmt.Fprintf(w, "unit %s (%s)\n", u.Name, u.Target.Triple)
	for _, v := range u.Exported {
		blob, err := typespec.Encode(v.Type)
		if err != nil {
			return fmt.Errorf("unit %s: %w", u.Name, err)
		}
		s, err := typespec.Decode(blob)
		if err != nil {
			return fmt.Errorf("unit %s: %w", u.Name, err)
		}
		fmt.Fprintf(w, "  %s: %s (%d bytes)\n", v.Name, describeSpec(s), len(blob))
	}
	return nil
}

func describeSpec(s *typespec.Spec) string {
	var sb strings.Builder
	writeSpec(&sb, s)
	return sb.String()
}

func writeSpec(sb *strings.Builder, s *typespec.Spec) {
	if s == nil {
		sb.WriteString("<nil>")
		return
	}
	switch s.Class {
	case export.ClassPrimitive, export.ClassMatrix:
		sb.WriteString(s.Data.String())
	case export.ClassVector:
		fmt.Fprintf(sb, "%s x%d", s.Data, s.Count)
	case export.ClassPointer:
		sb.WriteString("*")
		writeSpec(sb, s.Elem)
	case export.ClassConstantArray:
		fmt.Fprintf(sb, "[%d x ", s.Count)
		writeSpec(sb, s.Elem)
		sb.WriteString("]")
	case export.ClassRecord:
		fmt.Fprintf(sb, "struct %s {", s.Name)
		for i := range s.Fields {
			if i > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(sb, " %s: ", s.Fields[i].Name)
			writeSpec(sb, s.Fields[i].Type)
		}
		sb.WriteString(" }")
	default:
		sb.WriteString(s.Class.String())
	}
}
