// Package veil provides soft-delete semantics for a data-access layer by
// rewriting operations before they reach the storage executor.
//
// Deletes are converted into updates that set a tombstone flag and timestamp,
// and reads are transparently filtered so tombstoned records never surface.
// The rewriting happens at a single chokepoint, so call sites issue plain
// operations and never need to know about tombstones.
//
// # Rewrite Stages
//
// Every operation flows through three stages in a fixed order:
//
//  1. Lookup rewrite: unique-key lookups become filtered first-match lookups
//     (composite keys are flattened), and the not-tombstoned predicate is
//     injected into all reads.
//  2. Tombstone rewrite: deletes become updates setting the tombstone fields;
//     bulk deletes merge the tombstone fields into any caller-supplied data.
//  3. Relation inclusion: every eagerly included relation gets the
//     not-tombstoned predicate merged into its own filter.
//
// Stages mutate the [Operation] in place. A caller-set tombstone clause is
// never overwritten: explicit caller intent always wins.
//
// # Usage
//
//	pipe := veil.New(executor, veil.DefaultConfig())
//	res, err := pipe.Do(ctx, &veil.Operation{
//	    Entity: "order",
//	    Action: veil.ActionFindUnique,
//	    Args:   veil.Args{Where: veil.Where{"id": "A"}},
//	})
//
// Entities listed in [Config.SkipEntities] pass through all three stages
// untouched. The skip set is fixed at construction and never mutated.
//
// # Known Limitation
//
// Inclusion filtering applies only to directly included relations. Relations
// nested two or more levels deep are not filtered, and a collection reached
// through a link other than Include (for example a reverse back-reference
// resolved by the executor) is not filtered either. This is a documented
// boundary of the guarantee, not a bug.
package veil
