package cmd

import (
	stderrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	"pricing-calculator/core/catalog"
)

var validateStrict bool

// validateCmd checks a catalog file
var validateCmd = &cobra.Command{
	Use:   "validate <catalog>",
	Short: "Validate a pricing catalog",
	Long: `Validate checks that a catalog has every required field.

With --strict every formula is also parsed and checked for identifiers
its entity does not bind.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "also parse formulas and check their references")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	c, err := loadCatalog(args[0], cmd.ErrOrStderr())
	if err != nil {
		printIssues(cmd, err)
		return err
	}

	if validateStrict {
		engine, err := newEngine(c, nil)
		if err != nil {
			return err
		}
		if err := engine.CheckCatalog(c); err != nil {
			printIssues(cmd, err)
			return err
		}
	}

	fmt.Fprintf(out, "✓ %s: %d plans, %d addons\n", c.Vendor, len(c.Plans), len(c.Addons))
	return nil
}

func printIssues(cmd *cobra.Command, err error) {
	var validationErr *catalog.ValidationError
	if !stderrors.As(err, &validationErr) {
		return
	}
	for _, issue := range validationErr.Issues {
		fmt.Fprintf(cmd.ErrOrStderr(), "✗ %s\n", issue.Message)
	}
}
