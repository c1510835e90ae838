package veil

import "time"

// Config holds configuration for a rewrite Pipeline.
type Config struct {
	// DeletedField is the boolean tombstone flag column.
	// Default: "deleted"
	DeletedField string

	// DeletedAtField is the tombstone timestamp column.
	// Default: "deleted_at"
	DeletedAtField string

	// UpdatedAtField is the modification timestamp column.
	// Default: "updated_at"
	UpdatedAtField string

	// StampUpdates enables stamping UpdatedAtField on update and updateMany
	// operations. Deployments whose storage layer timestamps automatically
	// leave this off. When enabled, a caller-set value is preserved.
	StampUpdates bool

	// SkipEntities lists entity names exempt from all rewriting.
	// Fixed at construction; not mutable at runtime.
	SkipEntities []string

	// Now supplies the current time for tombstone and update stamps.
	// Default: time.Now
	Now func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DeletedField:   "deleted",
		DeletedAtField: "deleted_at",
		UpdatedAtField: "updated_at",
	}
}

// validate ensures config values are usable.
func (c *Config) validate() {
	if c.DeletedField == "" {
		c.DeletedField = "deleted"
	}
	if c.DeletedAtField == "" {
		c.DeletedAtField = "deleted_at"
	}
	if c.UpdatedAtField == "" {
		c.UpdatedAtField = "updated_at"
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}
