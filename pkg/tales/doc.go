// Package tales compiles TALES expressions into accessors.
//
// Forms, tried in order against the trimmed text:
//
//	kind:rest     a registered prefix handler (not, exists, string, path, nocall, script)
//	a/b/c         implicit path
//	'x' or "x"    quoted literal
//	anything else the text itself as a literal
//
// A path walks intermediate segments (the first one along the scope chain),
// promoting each value to a wrapper and storing it back, so deep paths stay
// observable. If the last segment holds a callable, the accessor calls it;
// otherwise it reads and writes the property of the final context.
//
// script: expressions are disabled unless an Evaluator is installed with
// WithEvaluator. ExprEvaluator runs them with github.com/expr-lang/expr.
package tales
