package rules

import "time"

// Engine names a rule evaluator implementation.
type Engine string

const (
	EngineExpr Engine = "expr"
	EngineCEL  Engine = "cel"
	EngineJS   Engine = "js"
)

// Rule is a boolean constraint evaluated before a staged value is saved.
type Rule struct {
	Engine  Engine `json:"engine,omitempty" yaml:"engine,omitempty"`
	Expr    string `json:"expr" yaml:"expr"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

func (r Rule) engine() Engine {
	if r.Engine == "" {
		return EngineExpr
	}
	return r.Engine
}

// RuleContext carries the inputs needed when evaluating a rule.
type RuleContext struct {
	Value    any
	Section  string
	Field    string
	Path     string
	Record   map[string]any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	if ctx.Record == nil {
		ctx.Record = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) label() string {
	if ctx.Section == "" && ctx.Path == "" {
		return "unknown"
	}
	return ctx.Section + "." + ctx.Path
}

// bindings returns the variables exposed to every engine.
func (ctx RuleContext) bindings() map[string]any {
	return map[string]any{
		"value":    ctx.Value,
		"section":  ctx.Section,
		"field":    ctx.Field,
		"path":     ctx.Path,
		"record":   ctx.Record,
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}
