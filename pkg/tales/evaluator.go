package tales

import (
	talerrors "github.com/vango-dev/tal/internal/errors"
	"github.com/vango-dev/tal/pkg/observe"
)

// Evaluator compiles script: expressions.
type Evaluator interface {
	Compile(src string) (Script, error)
}

// Script is a compiled script expression.
type Script interface {
	Run(t *observe.Tracker, ctx observe.Wrapper) (any, error)
}

// disabledEvaluator rejects every script. It is the default.
type disabledEvaluator struct{}

func (disabledEvaluator) Compile(src string) (Script, error) {
	return nil, talerrors.New(talerrors.CodeScriptDisabled).WithDetailf("script:%s", src)
}
