package rules

import (
	"fmt"
	"time"
)

// Option configures a Validator.
type Option func(*validatorConfig)

type validatorConfig struct {
	evaluators map[Engine]Evaluator
	cache      ProgramCache
	functions  *FunctionRegistry
	logger     EvaluatorLogger
}

// WithEvaluator registers (or replaces) the evaluator used for engine.
func WithEvaluator(engine Engine, evaluator Evaluator) Option {
	return func(cfg *validatorConfig) {
		if evaluator == nil {
			return
		}
		cfg.evaluators[engine] = evaluator
	}
}

// WithProgramCache overrides the cache shared by the built-in evaluators.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *validatorConfig) {
		cfg.cache = cache
	}
}

// WithFunctionRegistry exposes registry functions to the built-in evaluators.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *validatorConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for the built-in evaluators.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *validatorConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// WithLogger attaches an evaluator logger.
func WithLogger(logger EvaluatorLogger) Option {
	return func(cfg *validatorConfig) {
		if logger == nil {
			cfg.logger = noopEvaluatorLogger{}
			return
		}
		cfg.logger = logger
	}
}

// Validator checks rules against staged values, dispatching on Rule.Engine.
// It is safe for concurrent use once constructed.
type Validator struct {
	evaluators map[Engine]Evaluator
	logger     EvaluatorLogger
}

// NewValidator builds a Validator with expr and CEL engines, plus the goja
// engine when compiled with the js_eval tag. Explicit WithEvaluator entries win.
func NewValidator(opts ...Option) *Validator {
	cfg := validatorConfig{
		evaluators: map[Engine]Evaluator{},
		logger:     noopEvaluatorLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.cache == nil {
		cfg.cache = NewMapCache()
	}
	if _, ok := cfg.evaluators[EngineExpr]; !ok {
		cfg.evaluators[EngineExpr] = NewExprEvaluator(
			ExprWithProgramCache(cfg.cache),
			ExprWithFunctionRegistry(cfg.functions),
		)
	}
	if _, ok := cfg.evaluators[EngineCEL]; !ok {
		cfg.evaluators[EngineCEL] = NewCELEvaluator(
			CELWithProgramCache(cfg.cache),
			CELWithFunctionRegistry(cfg.functions),
		)
	}
	if _, ok := cfg.evaluators[EngineJS]; !ok {
		if js := NewJSEvaluator(JSWithProgramCache(cfg.cache), JSWithFunctionRegistry(cfg.functions)); js != nil {
			cfg.evaluators[EngineJS] = js
		}
	}
	return &Validator{
		evaluators: cfg.evaluators,
		logger:     cfg.logger,
	}
}

// Supports reports whether engine has an evaluator.
func (v *Validator) Supports(engine Engine) bool {
	if v == nil {
		return false
	}
	_, ok := v.evaluators[engine]
	return ok
}

// Check evaluates rule against ctx. A nil error means the rule passed.
// Failures unwrap to ErrRuleFailed, ErrNonBoolean, ErrUnknownEngine or an
// *EvaluationError.
func (v *Validator) Check(ctx RuleContext, rule Rule) error {
	if v == nil || rule.Expr == "" {
		return nil
	}
	engine := rule.engine()
	evaluator, ok := v.evaluators[engine]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEngine, engine)
	}

	ctx = ctx.withDefaults()
	start := time.Now()
	result, err := evaluator.Evaluate(ctx, rule.Expr)
	err = wrapEvaluationError(string(engine), rule.Expr, ctx.label(), err)

	passed := false
	if err == nil {
		var isBool bool
		passed, isBool = result.(bool)
		if !isBool {
			err = fmt.Errorf("%w: got %T", ErrNonBoolean, result)
		}
	}
	v.logger.LogEvaluation(EvaluatorLogEvent{
		Engine:   string(engine),
		Expr:     rule.Expr,
		Target:   ctx.label(),
		Duration: time.Since(start),
		Passed:   passed,
		Err:      err,
	})
	if err != nil {
		return err
	}
	if !passed {
		if rule.Message != "" {
			return fmt.Errorf("%w: %s", ErrRuleFailed, rule.Message)
		}
		return fmt.Errorf("%w: %s", ErrRuleFailed, rule.Expr)
	}
	return nil
}
