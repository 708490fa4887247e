// ABOUTME: Templates command group for listing and instantiating templates
// ABOUTME: Renders definitions to stdout for inspection or registration elsewhere

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loferris/artificer/internal/engine"
	"github.com/loferris/artificer/internal/inputs"
)

var (
	templatesCategory string
	templateParams    []string
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Inspect and instantiate workflow templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		e, err := engine.New(&engine.Config{Logger: &logger})
		if err != nil {
			return err
		}

		for _, tmpl := range e.ListTemplates(templatesCategory) {
			fmt.Fprintf(os.Stdout, "%-24s %-14s %s\n", tmpl.ID, tmpl.Category, tmpl.Description)
		}
		return nil
	},
}

var templatesShowCmd = &cobra.Command{
	Use:   "show <template-id>",
	Short: "Show a template's parameters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		e, err := engine.New(&engine.Config{Logger: &logger})
		if err != nil {
			return err
		}

		tmpl, err := e.GetTemplate(args[0])
		if err != nil {
			return newExitError(exitCode(err), err.Error())
		}

		encoded, err := json.MarshalIndent(tmpl, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(encoded))
		return nil
	},
}

var templatesInstantiateCmd = &cobra.Command{
	Use:   "instantiate <template-id>",
	Short: "Render a template into a workflow definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		params, err := inputs.ApplyOverrides(nil, templateParams)
		if err != nil {
			return newExitError(ExitValidation, err.Error())
		}

		e, err := engine.New(&engine.Config{Logger: &logger})
		if err != nil {
			return err
		}

		def, err := e.InstantiateTemplate(args[0], params, false, "")
		if err != nil {
			return newExitError(exitCode(err), err.Error())
		}

		encoded, err := json.MarshalIndent(def, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(encoded))
		return nil
	},
}

func init() {
	templatesListCmd.Flags().StringVar(&templatesCategory, "category", "", "filter by category")
	templatesInstantiateCmd.Flags().StringArrayVar(&templateParams, "param", nil, "template parameter (key=value, repeatable)")

	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesShowCmd)
	templatesCmd.AddCommand(templatesInstantiateCmd)
	rootCmd.AddCommand(templatesCmd)
}
