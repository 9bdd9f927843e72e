package adapters

import (
	"github.com/gin-gonic/gin"

	"github.com/toyz/tyx/pkg/tyx"
)

// GinPath converts a tyx path to gin syntax: {id:int} becomes :id and {*}
// becomes the catch-all *path.
func GinPath(path string) string {
	return tyx.Path(path).ColonPath("*path")
}

// MountGin registers every route of table on engine. handlers are keyed by
// "Api.Method".
func MountGin(engine gin.IRoutes, table *tyx.RouteTable, handlers map[string]gin.HandlerFunc) error {
	bindings, err := bind(table, handlers)
	if err != nil {
		return err
	}
	for _, b := range bindings {
		path := GinPath(b.route.Path)
		if b.route.Verb == VerbAny {
			engine.Any(path, b.handler)
			continue
		}
		engine.Handle(b.route.Verb, path, b.handler)
	}
	return nil
}
