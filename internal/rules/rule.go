package rules

import "github.com/wonny/futuquant/internal/strategyconfig"

// RuleResult is one rule's outcome against a context.
type RuleResult struct {
	Rule strategyconfig.Rule
	Pass bool
	Err  error
}

// EvaluateAll runs every rule against the context. Evaluation errors
// mark the rule as not passed and are kept on the result for callers
// that want to log them.
func EvaluateAll(ruleSet []strategyconfig.Rule, ctx *Context) []RuleResult {
	results := make([]RuleResult, 0, len(ruleSet))
	for _, r := range ruleSet {
		pass, err := Eval(r.Rule, ctx)
		if err != nil {
			pass = false
		}
		results = append(results, RuleResult{Rule: r, Pass: pass, Err: err})
	}
	return results
}

// Score sums the weights of passed rules.
func Score(ruleSet []strategyconfig.Rule, ctx *Context) (score float64, evaluated, passed int) {
	for _, res := range EvaluateAll(ruleSet, ctx) {
		evaluated++
		if res.Pass {
			passed++
			score += res.Rule.Weight
		}
	}
	return score, evaluated, passed
}
