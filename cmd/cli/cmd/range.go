package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pricing-calculator/core/output"
	"pricing-calculator/core/quota"
	apperrors "pricing-calculator/internal/errors"
)

var rangeUnits int

// rangeCmd describes an entity's unit slider
var rangeCmd = &cobra.Command{
	Use:   "range <catalog> <entity-id>",
	Short: "Show the unit range and included quota of a plan or add-on",
	Args:  cobra.ExactArgs(2),
	RunE:  runRange,
}

func init() {
	rangeCmd.Flags().IntVarP(&rangeUnits, "units", "u", -1, "also price the entity at this unit count")
}

func runRange(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	c, err := loadCatalog(args[0], cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	entity, kind, ok := c.Entity(args[1])
	if !ok {
		return apperrors.NotFound("entity", args[1])
	}

	r := quota.SliderRange(entity)
	fmt.Fprintf(out, "%s %s (%s)\n", kind, entity.ID, entity.PricingModel)
	fmt.Fprintf(out, "  range:      %d..%d step %d\n", r.Min, r.Max, r.Step)
	if price, err := entity.UnitPriceDecimal(); err == nil {
		fmt.Fprintf(out, "  unit price: %s per %s\n", output.FormatCurrency(price, c.Currency), entity.Unit)
	}
	if info, ok := quota.IncludedQuotaInfo(entity); ok {
		fmt.Fprintf(out, "  included:   %d %s\n", info.Value, info.Unit)
	}

	if rangeUnits < 0 {
		return nil
	}
	engine, err := newEngine(c, nil)
	if err != nil {
		return err
	}
	price, err := engine.CalculateEntityPrice(entity, rangeUnits)
	if err != nil {
		return err
	}
	marker := ""
	if quota.IsAtIncludedQuota(entity, rangeUnits) {
		marker = " (included quota)"
	}
	fmt.Fprintf(out, "  at %d:      %s%s\n", rangeUnits, output.FormatCurrencyPlaces(price, engine.Currency(), engine.Places()), marker)
	return nil
}
