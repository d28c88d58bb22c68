package cxxbind

import "fmt"

// ConfigError is a fatal configuration problem: malformed directives or
// input, directives naming unknown or unusable entities, colliding type
// names, cyclic value membership, a non-polymorphic subclass target, or a
// run that accepts nothing. No output is produced when one is returned.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cxxbind: %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
