// Package rules evaluates per-field constraints attached to content section
// descriptors. A rule is a boolean expression over the staged value and the
// record it will be written into; engines are pluggable behind Evaluator.
//
// Engines:
//
//	expr  github.com/expr-lang/expr (default)
//	cel   github.com/google/cel-go
//	js    github.com/dop251/goja (requires the js_eval build tag)
//
// Expressions see the following bindings:
//
//	value    the staged value
//	section  section name ("contact")
//	field    the final path segment ("email")
//	path     the full field path ("nutrition.calories")
//	record   the record the value is written into (map[string]any)
//	now      evaluation timestamp
//	args     caller supplied arguments
//	metadata caller supplied metadata
package rules
