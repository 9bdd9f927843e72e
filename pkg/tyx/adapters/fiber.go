package adapters

import (
	"github.com/gofiber/fiber/v2"

	"github.com/toyz/tyx/pkg/tyx"
)

// FiberPath converts a tyx path to fiber syntax: {id:int} becomes :id and
// {*} becomes *.
func FiberPath(path string) string {
	return tyx.Path(path).ColonPath("*")
}

// MountFiber registers every route of table on router. handlers are keyed
// by "Api.Method".
func MountFiber(router fiber.Router, table *tyx.RouteTable, handlers map[string]fiber.Handler) error {
	bindings, err := bind(table, handlers)
	if err != nil {
		return err
	}
	for _, b := range bindings {
		path := FiberPath(b.route.Path)
		if b.route.Verb == VerbAny {
			router.All(path, b.handler)
			continue
		}
		router.Add(b.route.Verb, path, b.handler)
	}
	return nil
}
