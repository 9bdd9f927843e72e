package adapters

import (
	"github.com/labstack/echo/v4"

	"github.com/toyz/tyx/pkg/tyx"
)

// EchoPath converts a tyx path to echo syntax: {id:int} becomes :id and
// {*} becomes *.
func EchoPath(path string) string {
	return tyx.Path(path).ColonPath("*")
}

// MountEcho registers every route of table on e. handlers are keyed by
// "Api.Method". Nothing is registered when a route cannot be bound.
func MountEcho(e *echo.Echo, table *tyx.RouteTable, handlers map[string]echo.HandlerFunc, middlewares ...echo.MiddlewareFunc) error {
	bindings, err := bind(table, handlers)
	if err != nil {
		return err
	}
	for _, b := range bindings {
		path := EchoPath(b.route.Path)
		if b.route.Verb == VerbAny {
			e.Any(path, b.handler, middlewares...)
			continue
		}
		e.Add(b.route.Verb, path, b.handler, middlewares...)
	}
	return nil
}
