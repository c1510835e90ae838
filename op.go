package veil

import "context"

// Action identifies the kind of data-access operation.
type Action int

const (
	// ActionCreate inserts a new record. Never rewritten.
	ActionCreate Action = iota

	// ActionFindUnique looks up a single record by unique key.
	// Rewritten to ActionFindFirst with a flattened, filtered predicate.
	ActionFindUnique

	// ActionFindFirst returns the first record matching a filter.
	ActionFindFirst

	// ActionFindMany returns all records matching a filter.
	ActionFindMany

	// ActionUpdate updates a single record.
	ActionUpdate

	// ActionUpdateMany updates all records matching a filter.
	ActionUpdateMany

	// ActionDelete deletes a single record.
	// Rewritten to ActionUpdate setting the tombstone fields.
	ActionDelete

	// ActionDeleteMany deletes all records matching a filter.
	// Rewritten to ActionUpdateMany setting the tombstone fields.
	ActionDeleteMany
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionFindUnique:
		return "findUnique"
	case ActionFindFirst:
		return "findFirst"
	case ActionFindMany:
		return "findMany"
	case ActionUpdate:
		return "update"
	case ActionUpdateMany:
		return "updateMany"
	case ActionDelete:
		return "delete"
	case ActionDeleteMany:
		return "deleteMany"
	}
	return "unknown"
}

// Where is an equality predicate mapping field names to expected values.
// Entries are implicitly ANDed. A value that is itself a Where (or a plain
// map[string]any) is a composite-key group whose inner entries are hoisted
// during lookup rewriting; a nil value is an ordinary scalar.
type Where map[string]any

// Data maps field names to values to be written.
type Data map[string]any

// Relation describes how an included relation should be loaded.
// A nil *Relation in an [Include] means "include with default shape".
type Relation struct {
	// Where filters the included relation's own records.
	Where Where

	// Include nests further relations under this one. Nested relations are
	// NOT tombstone-filtered; see the package documentation.
	Include Include
}

// Include maps relation names to their inclusion descriptors.
type Include map[string]*Relation

// Args is the argument bag of an operation. Stages mutate it in place;
// it is owned by the issuing request for the operation's lifetime.
type Args struct {
	Where   Where
	Data    Data
	Include Include

	// OrderBy names the field to sort by, empty for executor default.
	OrderBy string

	// Limit caps the number of returned records (0 = no limit).
	Limit int
}

// Operation is one request to the storage layer. It is created per call,
// flows once through the rewrite chain, and is discarded after the executor
// consumes it.
type Operation struct {
	// Entity is the logical table/model name.
	Entity string

	// Action is the operation kind. Stages may reassign it.
	Action Action

	// Args holds the predicate, data and inclusion sub-bags.
	Args Args
}

// Record is one row returned by an executor.
type Record map[string]any

// Result is what an executor returns for an operation.
type Result struct {
	// Records holds returned rows for read operations.
	Records []Record

	// Count is the affected-row count for write operations.
	Count int64
}

// Executor runs a (possibly rewritten) operation against real storage.
// It must support the post-rewrite action vocabulary: findFirst, findMany,
// update and updateMany, alongside the untouched create/findUnique/delete
// path used by skip-listed entities.
type Executor interface {
	Exec(ctx context.Context, op *Operation) (*Result, error)
}

// Handler processes one operation and produces its result.
type Handler func(ctx context.Context, op *Operation) (*Result, error)

// Middleware wraps a Handler with additional behavior.
type Middleware func(next Handler) Handler

// Chain composes middlewares around a handler. The first middleware is the
// outermost: Chain(h, a, b) runs a, then b, then h.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
