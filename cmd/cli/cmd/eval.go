package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"pricing-calculator/core/formula"
)

var (
	evalVars []string
	evalAST  bool
)

// evalCmd evaluates a single formula
var evalCmd = &cobra.Command{
	Use:   "eval <formula>",
	Short: "Evaluate a formula",
	Long: `Eval parses and evaluates one formula.

Variables are bound with repeated --var name=value flags. true and false
bind booleans, numbers bind decimals, a JSON object binds an object and
anything else binds a string.

Examples:
  pricecalc eval "team-size * 2" --var team-size=5
  pricecalc eval "q.seat.value" --var 'q={"seat":{"value":3}}'`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringArrayVar(&evalVars, "var", nil, "variable binding as name=value (repeatable)")
	evalCmd.Flags().BoolVar(&evalAST, "ast", false, "print the canonical expression before the result")
}

func runEval(cmd *cobra.Command, args []string) error {
	env := formula.Env{}
	for _, pair := range evalVars {
		name, raw, err := parseAssignment(pair)
		if err != nil {
			return err
		}
		v, err := parseVarValue(raw)
		if err != nil {
			return fmt.Errorf("variable %s: %w", name, err)
		}
		env[name] = v
	}

	ast, err := formula.Parse(args[0])
	if err != nil {
		return err
	}
	if evalAST {
		fmt.Fprintln(cmd.OutOrStdout(), ast.String())
	}

	v, err := formula.Evaluate(ast, env)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), v.String())
	return nil
}

// parseVarValue interprets a command-line variable value
func parseVarValue(raw string) (formula.Value, error) {
	switch {
	case raw == "true" || raw == "false":
		return formula.Bool(raw == "true"), nil
	case strings.HasPrefix(raw, "{"):
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.UseNumber()
		var obj map[string]interface{}
		if err := dec.Decode(&obj); err != nil {
			return formula.Value{}, err
		}
		return formula.FromGo(obj)
	}
	if d, err := decimal.NewFromString(raw); err == nil {
		return formula.Number(d), nil
	}
	if s, err := strconv.Unquote(raw); err == nil {
		return formula.String(s), nil
	}
	return formula.String(raw), nil
}
