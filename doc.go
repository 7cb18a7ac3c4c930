// Package trainforge resolves declarative machine learning experiment
// definitions into fully merged, validated training configurations.
//
// An experiment document describes up to three phases (training, validation,
// testing) plus a shared model architecture. Authors factor out repetition
// with anchors and aliases; trainforge expands those by value, layers
// invocation-time overrides and schema defaults underneath each phase, and
// validates the merged result against a registry of known problems,
// samplers, optimizers and models. A run either yields an immutable
// ResolvedConfig or a complete list of located issues, never a partial
// result.
//
// Key Components:
//
//   - document: YAML loading into an ordered raw tree, with anchor expansion
//     by value and structural diagnostics (duplicate keys, undefined and
//     cyclic aliases).
//
//   - schema: The registry of section schemas, per-model sub-schemas and
//     declared defaults that resolution validates against.
//
//   - config: The resolution pipeline. Merging with override > phase >
//     defaults precedence, cross-phase consistency checking, exhaustive
//     validation and the typed ResolvedConfig.
//
//   - batch: Concurrent resolution of many documents with bounded
//     parallelism, for grid runs that resolve every configuration up front.
//
//   - store: A SQLite-backed registry recording which configuration each
//     run used.
//
//   - errors, logging: Shared structured error and logging support used
//     across the module.
//
// Example usage:
//
//	resolver, err := config.NewResolver()
//	if err != nil {
//		log.Fatal(err)
//	}
//	resolved, err := resolver.ResolveFile(ctx, "experiments/mnist.yaml")
//	if err != nil {
//		if issues, ok := config.IssuesFrom(err); ok {
//			for _, issue := range issues {
//				fmt.Println(issue)
//			}
//		}
//		log.Fatal(err)
//	}
//	train := resolved.Training()
//	fmt.Println(train.Problem.Name, train.Optimizer.LR)
//
// trainforge is released under the MIT License.
package trainforge
