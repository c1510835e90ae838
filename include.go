package veil

// rewriteInclude propagates the not-tombstoned predicate into every relation
// eagerly included by a read.
//
// Only the directly included relation's own records are filtered. The stage
// does not recurse into relations nested under Relation.Include, and it
// cannot filter collections reached through links the executor resolves
// outside of Include. See the package documentation.
func (p *Pipeline) rewriteInclude(op *Operation) {
	if p.Skipped(op.Entity) {
		return
	}

	for name, rel := range op.Args.Include {
		if p.Skipped(name) {
			continue
		}

		if rel == nil {
			// Default-shape inclusion: give it a filtered descriptor.
			op.Args.Include[name] = &Relation{
				Where: Where{p.config.DeletedField: false},
			}
			continue
		}

		if rel.Where == nil {
			rel.Where = Where{p.config.DeletedField: false}
			continue
		}

		// Merge, preserving caller-set fields. An explicit caller-set
		// tombstone clause is never overwritten.
		if _, explicit := rel.Where[p.config.DeletedField]; !explicit {
			rel.Where[p.config.DeletedField] = false
		}
	}
}
