package veil

// rewriteTombstone converts delete operations into tombstone updates and,
// when enabled, stamps the modification timestamp on generic updates.
func (p *Pipeline) rewriteTombstone(op *Operation) {
	if p.Skipped(op.Entity) {
		return
	}

	switch op.Action {
	case ActionDelete:
		// A delete carries no caller data; anything present is discarded.
		op.Action = ActionUpdate
		op.Args.Data = p.tombstoneData()

	case ActionDeleteMany:
		op.Action = ActionUpdateMany
		if op.Args.Data == nil {
			op.Args.Data = make(Data, 2)
		}
		for k, v := range p.tombstoneData() {
			op.Args.Data[k] = v
		}

	case ActionUpdate, ActionUpdateMany:
		if !p.config.StampUpdates {
			return
		}
		if op.Args.Data == nil {
			op.Args.Data = make(Data, 1)
		}
		// Caller-set stamps win.
		if _, explicit := op.Args.Data[p.config.UpdatedAtField]; !explicit {
			op.Args.Data[p.config.UpdatedAtField] = p.config.Now().UTC()
		}
	}
}

// tombstoneData builds the field assignments that mark a record deleted.
func (p *Pipeline) tombstoneData() Data {
	return Data{
		p.config.DeletedField:   true,
		p.config.DeletedAtField: p.config.Now().UTC(),
	}
}
