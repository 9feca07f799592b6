package cli

import (
	"fmt"

	"github.com/dgallion1/examkb/internal/knowledge"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newRulesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the effective extraction ruleset",
		Long: `Prints the built-in rules merged with --rules or EXAMKB_RULES as YAML.
The rules are compiled first, so a bad pattern fails here.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := knowledge.LoadRuleset(a.cfg.RulesPath)
			if err != nil {
				return err
			}
			if _, err := knowledge.New(rs, nil); err != nil {
				return fmt.Errorf("compile rules: %w", err)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(rs); err != nil {
				return fmt.Errorf("encode rules: %w", err)
			}
			return enc.Close()
		},
	}
}
