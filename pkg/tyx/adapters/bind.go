// Package adapters mounts a tyx route table on echo, gin and fiber.
package adapters

import (
	"net/http"
	"strings"

	"github.com/toyz/tyx/internal/errors"
	"github.com/toyz/tyx/pkg/tyx"
)

// VerbAny registers a route for every HTTP method
const VerbAny = "ANY"

// anyVerbs are the methods an ANY route is registered for
var anyVerbs = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodConnect,
	http.MethodOptions,
	http.MethodTrace,
}

var supportedVerbs = func() map[string]bool {
	verbs := map[string]bool{VerbAny: true}
	for _, verb := range anyVerbs {
		verbs[verb] = true
	}
	return verbs
}()

type binding[H any] struct {
	route   tyx.RouteInfo
	handler H
}

// bind pairs every route of the table with the handler registered under
// "Api.Method". A route key shared by several Apis, as happens with
// inherited Apis, is mounted once using the first Api that has a handler.
// Routes that one router tree cannot hold together are rejected.
func bind[H any](table *tyx.RouteTable, handlers map[string]H) ([]binding[H], error) {
	var multiErr *errors.MultipleErrors
	var bindings []binding[H]
	overlaps := newOverlapIndex()

	order := make([]string, 0)
	candidates := make(map[string][]tyx.RouteInfo)
	for _, route := range table.Routes {
		if _, ok := candidates[route.Route]; !ok {
			order = append(order, route.Route)
		}
		candidates[route.Route] = append(candidates[route.Route], route)
	}

	for _, key := range order {
		routes := candidates[key]
		first := routes[0]
		if !supportedVerbs[first.Verb] {
			errors.AddToMultiple(&multiErr, errors.ValidateError("http verb for "+key, "a standard HTTP method", first.Verb).
				WithContext("route", key))
			continue
		}
		if err := tyx.Path(first.Path).Validate(); err != nil {
			errors.AddToMultiple(&multiErr, errors.Wrap(errors.ValidationErrorCode, "invalid route "+key, err).
				WithContext("route", key))
			continue
		}
		if err := overlaps.add(first); err != nil {
			errors.AddToMultiple(&multiErr, err)
			continue
		}

		bound := false
		for _, route := range routes {
			if h, ok := handlers[route.Key()]; ok {
				bindings = append(bindings, binding[H]{route: route, handler: h})
				bound = true
				break
			}
		}
		if !bound {
			errors.AddToMultiple(&multiErr, errors.Newf(errors.DependencyErrorCode, "no handler bound for %s (%s)", first.Key(), key).
				WithContext("route", key).
				WithSuggestion("register a handler under \""+first.Key()+"\""))
		}
	}

	if err := multiErr.ErrorOrNil(); err != nil {
		return nil, err
	}
	return bindings, nil
}

// overlapIndex tracks what each method's route tree already holds: the
// path shapes with parameter names erased, and the parameter or wildcard
// claimed after each static prefix.
type overlapIndex struct {
	shapes map[string]string
	params map[string]paramClaim
}

type paramClaim struct {
	route string
	token string
}

func newOverlapIndex() *overlapIndex {
	return &overlapIndex{
		shapes: make(map[string]string),
		params: make(map[string]paramClaim),
	}
}

// add records route, or reports the earlier route it collides with. An ANY
// route occupies the tree of every method.
func (o *overlapIndex) add(route tyx.RouteInfo) *errors.BaseError {
	verbs := []string{route.Verb}
	if route.Verb == VerbAny {
		verbs = anyVerbs
	}
	parts := tyx.Path(route.Path).Parts()

	for _, verb := range verbs {
		var shape strings.Builder
		for _, part := range parts {
			var token string
			switch part.Type {
			case tyx.ParameterPart:
				token = ":" + part.Value
			case tyx.WildcardPart:
				token = "*"
			default:
				shape.WriteString(part.Value)
				continue
			}
			at := verb + " " + shape.String()
			if prev, ok := o.params[at]; !ok {
				o.params[at] = paramClaim{route: route.Route, token: token}
			} else if prev.token != token {
				return overlapError(route.Route, prev.route).
					WithSuggestion("use the same parameter name at the same position")
			}
			shape.WriteString(token[:1])
		}

		at := verb + " " + shape.String()
		if prev, ok := o.shapes[at]; ok {
			return overlapError(route.Route, prev)
		}
		o.shapes[at] = route.Route
	}
	return nil
}

func overlapError(route, prev string) *errors.BaseError {
	return errors.Newf(errors.ValidationErrorCode, "route %s overlaps %s", route, prev).
		WithContext("route", route).
		WithContext("previous", prev)
}

