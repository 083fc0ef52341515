package cmd

import (
	"github.com/spf13/cobra"

	"pricing-calculator/core/output"
	"pricing-calculator/core/pricing"
	"pricing-calculator/core/quota"
	"pricing-calculator/internal/config"
)

var (
	quotePlan   string
	quoteUnits  int
	quoteAddons []string
	quoteFormat string
	quoteClamp  bool
)

// quoteCmd prices a plan selection
var quoteCmd = &cobra.Command{
	Use:   "quote <catalog>",
	Short: "Price a plan and its add-ons",
	Long: `Quote prices a plan and any add-ons it offers.

Add-ons are selected with repeated --addon id=units flags. A line whose
formula fails is shown as unavailable and the command exits non-zero.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuote,
}

func init() {
	quoteCmd.Flags().StringVarP(&quotePlan, "plan", "p", "", "plan id (required)")
	quoteCmd.Flags().IntVarP(&quoteUnits, "units", "u", 0, "plan units")
	quoteCmd.Flags().StringArrayVarP(&quoteAddons, "addon", "a", nil, "add-on units as id=units (repeatable)")
	quoteCmd.Flags().StringVarP(&quoteFormat, "format", "f", "", "output format: cli, json, markdown (default from config)")
	quoteCmd.Flags().BoolVar(&quoteClamp, "clamp", false, "clamp units into each entity's slider range")
	_ = quoteCmd.MarkFlagRequired("plan")
}

func runQuote(cmd *cobra.Command, args []string) error {
	c, err := loadCatalog(args[0], cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	addonUnits, err := parseUnits(quoteAddons)
	if err != nil {
		return err
	}

	sel := pricing.Selection{PlanID: quotePlan, PlanUnits: quoteUnits, AddonUnits: addonUnits}
	if quoteClamp {
		if plan, ok := c.Plan(sel.PlanID); ok {
			sel.PlanUnits = quota.Clamp(plan, sel.PlanUnits)
		}
		for id, units := range sel.AddonUnits {
			if addon, ok := c.Addon(id); ok {
				sel.AddonUnits[id] = quota.Clamp(addon, units)
			}
		}
	}

	engine, err := newEngine(c, nil)
	if err != nil {
		return err
	}
	q, err := engine.QuoteCatalog(c, sel)
	if err != nil {
		return err
	}

	format := quoteFormat
	if format == "" {
		format = config.Get().Output.DefaultFormat
	}
	if err := output.NewRegistry().Render(cmd.OutOrStdout(), format, q); err != nil {
		return err
	}
	return q.Err()
}
