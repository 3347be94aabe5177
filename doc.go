// Package yaecs is a hierarchical configuration engine for reproducible
// experiment parameterization. It merges layered YAML, JSON or TOML
// sources into one parameter tree with named sub-config scopes, applies
// pattern-dispatched processing hooks, accepts type-checked command-line
// overrides, and expands declared variations and grids into independent
// sibling configs.
//
// The first merged source is the default source: it alone defines the
// key set. Every later source, including CLI overrides, may only update
// keys the default source introduced, and may not change a parameter's
// runtime kind. The full merge order is recorded as the config's
// hierarchy, so a saved config plus its hierarchy artifact reproduces
// the tree exactly.
//
// Construction goes through a Builder:
//
//	cfg, err := yaecs.NewBuilder().
//		WithDefault("configs/default.yaml").
//		WithSource("configs/experiment.yaml").
//		WithArgs(os.Args[1:]).
//		WithRegime(yaecs.RegimeLocked).
//		Build()
//
// After Build the tree is governed by its overwriting regime: locked
// configs reject direct mutation, unsafe configs apply it with a
// one-time notice, and auto-save configs (the default) re-serialize to
// their save path on every change.
package yaecs
