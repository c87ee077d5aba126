package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/cura-ai/cura/internal/core"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored diagnosis runs",
	RunE:  runHistory,
}

var showCmd = &cobra.Command{
	Use:   "show <diagnosis-id>",
	Short: "Print a stored diagnosis in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <diagnosis-id>",
	Short: "Delete a stored diagnosis and its conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	recs, err := a.store.ListDiagnoses(cmd.Context())
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no stored diagnoses")
		return nil
	}

	idStyle := lipgloss.NewStyle().Bold(true)
	for _, rec := range recs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %-9s  %s\n",
			idStyle.Render(rec.ID),
			rec.CreatedAt.Local().Format(time.DateTime),
			rec.Result.Status,
			strings.Join(rec.Result.Specialists, ", "),
		)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	rec, err := a.store.LoadDiagnosis(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if rec == nil {
		return core.ErrNotFound("diagnosis", args[0])
	}

	header := lipgloss.NewStyle().Bold(true)
	for _, rep := range rec.Result.Reports {
		fmt.Fprintln(cmd.OutOrStdout(), header.Render(rep.Specialist+" Report"))
		fmt.Fprintln(cmd.OutOrStdout(), rep.Content)
		fmt.Fprintln(cmd.OutOrStdout())
	}
	fmt.Fprintln(cmd.OutOrStdout(), header.Render("Final Diagnosis"))
	fmt.Fprintln(cmd.OutOrStdout(), rec.Result.FinalReport)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	rec, err := a.store.LoadDiagnosis(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if rec == nil {
		return core.ErrNotFound("diagnosis", args[0])
	}

	if err := a.store.DeleteDiagnosis(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	return nil
}
