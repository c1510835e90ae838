package veil

// rewriteLookup normalizes unique-key lookups into filtered first-match
// lookups and injects the not-tombstoned predicate into all reads.
func (p *Pipeline) rewriteLookup(op *Operation) {
	if p.Skipped(op.Entity) {
		return
	}

	switch op.Action {
	case ActionFindUnique:
		op.Action = ActionFindFirst
		op.Args.Where = flattenWhere(op.Args.Where)
		p.injectNotDeleted(&op.Args.Where)

	case ActionFindMany:
		p.injectNotDeleted(&op.Args.Where)
	}
}

// flattenWhere rebuilds a unique-key predicate as a flat filter. Scalar
// entries are copied as-is; a value that is itself a mapping is a composite
// key group whose inner entries are hoisted one level, discarding the
// synthetic concatenated key. Hoisting is best-effort: inner values are
// copied regardless of their own structure, with no validation. A nil value
// is a scalar, not a group.
func flattenWhere(where Where) Where {
	if where == nil {
		return nil
	}

	flat := make(Where, len(where))
	for key, value := range where {
		switch group := value.(type) {
		case Where:
			for k, v := range group {
				flat[k] = v
			}
		case map[string]any:
			for k, v := range group {
				flat[k] = v
			}
		default:
			flat[key] = value
		}
	}
	return flat
}

// injectNotDeleted sets the not-tombstoned clause, creating the predicate
// if absent. A caller-explicit tombstone clause is left alone.
func (p *Pipeline) injectNotDeleted(where *Where) {
	if *where == nil {
		*where = make(Where, 1)
	}
	if _, explicit := (*where)[p.config.DeletedField]; explicit {
		return
	}
	(*where)[p.config.DeletedField] = false
}
