package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cura-ai/cura/internal/core"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose [report-file]",
	Short: "Run a multi-specialist diagnosis on a medical report",
	Long: `Run a diagnosis. The report is read from the given file, or from
stdin when no file is named.

By default the specialists to consult are chosen automatically from the
report content. Use --specialists to name an explicit panel instead.

Examples:
  # Auto-select specialists from the report
  cura diagnose report.txt

  # Consult an explicit panel
  cura diagnose report.txt --specialists Cardiologist,Neurologist

  # Read from stdin, write the final report to a file
  cat report.txt | cura diagnose --out diagnosis.md`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiagnose,
}

var (
	diagnoseSpecialists []string
	diagnoseOut         string
	diagnoseNoSave      bool
)

func init() {
	rootCmd.AddCommand(diagnoseCmd)

	diagnoseCmd.Flags().StringSliceVarP(&diagnoseSpecialists, "specialists", "s", nil,
		"comma-separated specialist names (default: auto-select)")
	diagnoseCmd.Flags().StringVarP(&diagnoseOut, "out", "o", "",
		"write the final report to this file instead of stdout")
	diagnoseCmd.Flags().BoolVar(&diagnoseNoSave, "no-save", false,
		"do not persist the run to the store")
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	reportText, err := readReport(args)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	started := time.Now()
	result, err := a.engine.Diagnose(cmd.Context(), reportText, diagnoseSpecialists)
	if err != nil {
		return err
	}

	var id string
	if !diagnoseNoSave {
		rec := &core.DiagnosisRecord{
			ID:         uuid.NewString(),
			ReportText: reportText,
			Result:     *result,
			CreatedAt:  time.Now(),
		}
		if err := a.store.SaveDiagnosis(cmd.Context(), rec); err != nil {
			return fmt.Errorf("saving diagnosis: %w", err)
		}
		id = rec.ID
	}

	printDiagnosisSummary(cmd.ErrOrStderr(), result, id, time.Since(started))

	if diagnoseOut != "" {
		if err := renameio.WriteFile(diagnoseOut, []byte(result.FinalReport+"\n"), 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "final report written to %s\n", diagnoseOut)
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.FinalReport)
	return nil
}

func readReport(args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("reading report file: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading report from stdin: %w", err)
	}
	return string(data), nil
}

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

func printDiagnosisSummary(w io.Writer, result *core.DiagnosisResult, id string, elapsed time.Duration) {
	fmt.Fprintln(w, headerStyle.Render("Specialist panel"))
	for _, rep := range result.Reports {
		mark := okStyle.Render("ok")
		if rep.Failed() {
			mark = failStyle.Render("failed")
		}
		fmt.Fprintf(w, "  %-22s %s\n", rep.Specialist, mark)
	}

	status := string(result.Status)
	if result.Status == core.DiagnosisStatusDegraded {
		status = failStyle.Render(status)
	}
	fmt.Fprintf(w, "%s %s\n", headerStyle.Render("Status:"), status)
	if id != "" {
		fmt.Fprintf(w, "%s %s\n", headerStyle.Render("ID:"), id)
	}
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("completed in %s", elapsed.Round(time.Millisecond))))
	fmt.Fprintln(w, strings.Repeat("-", 40))
}
