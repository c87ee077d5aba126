package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cura-ai/cura/internal/service"
)

var specialistsCmd = &cobra.Command{
	Use:   "specialists",
	Short: "List the available specialist catalog",
	RunE:  runSpecialists,
}

var specialistsFormat string

func init() {
	rootCmd.AddCommand(specialistsCmd)

	specialistsCmd.Flags().StringVar(&specialistsFormat, "format", "table",
		"output format (table, yaml)")
}

func runSpecialists(cmd *cobra.Command, _ []string) error {
	defs := service.DefaultSpecialists()

	switch specialistsFormat {
	case "yaml":
		type entry struct {
			Name        string `yaml:"name"`
			DisplayName string `yaml:"display_name"`
			Icon        string `yaml:"icon"`
		}
		entries := make([]entry, len(defs))
		for i, def := range defs {
			entries[i] = entry{Name: def.Name, DisplayName: def.DisplayName, Icon: def.Icon}
		}
		out, err := yaml.Marshal(entries)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil

	case "table":
		nameStyle := lipgloss.NewStyle().Bold(true)
		for _, def := range defs {
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", nameStyle.Render(def.Name), def.Icon)
		}
		return nil

	default:
		return fmt.Errorf("unknown format %q (want table or yaml)", specialistsFormat)
	}
}
