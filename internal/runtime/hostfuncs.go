package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"
	"github.com/sirupsen/logrus"

	"github.com/jward/cxxbind/internal/directives"
)

// collector accumulates the directives a script declares. The first host
// function error is kept so it can be reported even if the script
// swallows the returned error value.
type collector struct {
	d   directives.Directives
	err error
}

func (c *collector) fail(err error) object.Object {
	if c.err == nil {
		c.err = err
	}
	return object.NewError(err)
}

// makeDirectiveFn creates the host function for one directive key.
//
// generate("A", "B") / generate(["A", "B"]) → nil
func makeDirectiveFn(c *collector, key directives.Key) *object.Builtin {
	name := string(key)
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) == 0 {
			return c.fail(fmt.Errorf("%s: expected at least one argument", name))
		}
		for _, arg := range args {
			values, err := stringArgs(name, arg)
			if err != nil {
				return c.fail(err)
			}
			for _, v := range values {
				if err := c.d.Add(name, v); err != nil {
					return c.fail(err)
				}
			}
		}
		return object.Nil
	})
}

// stringArgs flattens a string or a list of strings.
func stringArgs(fn string, arg object.Object) ([]string, error) {
	switch v := arg.(type) {
	case *object.String:
		return []string{v.Value()}, nil
	case *object.List:
		var out []string
		for _, item := range v.Value() {
			s, ok := item.(*object.String)
			if !ok {
				return nil, fmt.Errorf("%s: list items must be strings, got %s", fn, item.Type())
			}
			out = append(out, s.Value())
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: argument must be a string or list, got %s", fn, arg.Type())
	}
}

// makeEntitiesFn creates the "entities" host function.
//
// entities() → [{"name": ..., "kind": ...}, ...]
func makeEntitiesFn(entities []Entity) *object.Builtin {
	return object.NewBuiltin("entities", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("entities", 0, len(args))
		}
		items := make([]object.Object, 0, len(entities))
		for _, e := range entities {
			items = append(items, object.NewMap(map[string]object.Object{
				"name": object.NewString(e.Name),
				"kind": object.NewString(e.Kind),
			}))
		}
		return object.NewList(items)
	})
}

// logObject provides log.info/warn/error methods for Risor scripts.
type logObject struct {
	logger *logrus.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.WithField("source", "script").Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.WithField("source", "script").Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.WithField("source", "script").Error(msg)
}
