package loader

import (
	"strings"

	"go.uber.org/zap"

	"github.com/toyz/tyx/internal/errors"
	"github.com/toyz/tyx/internal/parser"
)

// dependencies returns the definitions that must be committed before n: the
// definition on its parent class and, for a service, the api it implements.
func (st *loadState) dependencies(n *node) []parser.TypeRef {
	var deps []parser.TypeRef
	if parent := n.class.Parent; parent != nil {
		ref := parser.TypeRef{Package: parent.Package, Name: parent.Name}
		if _, ok := st.nodes[ref]; ok {
			deps = append(deps, ref)
		}
	}
	if n.apiClass != nil {
		ref := parser.TypeRef{Package: n.apiClass.Package, Name: n.apiClass.Name}
		if _, ok := st.nodes[ref]; ok {
			deps = append(deps, ref)
		}
	}
	return deps
}

const (
	unvisited = iota
	visiting
	visited
	broken
)

// commitOrder sorts the definitions so that every dependency precedes its
// dependents. Definitions caught in a cycle are reported and left out.
func (st *loadState) commitOrder() []*node {
	state := make(map[parser.TypeRef]int, len(st.nodes))
	var order []*node
	var path []parser.TypeRef

	var visit func(ref parser.TypeRef) bool
	visit = func(ref parser.TypeRef) bool {
		switch state[ref] {
		case visited:
			return true
		case broken:
			return false
		case visiting:
			errors.Collect(&st.multiErr, cycleError(path, ref))
			return false
		}
		state[ref] = visiting
		path = append(path, ref)
		n := st.nodes[ref]
		ok := true
		for _, dep := range st.dependencies(n) {
			if !visit(dep) {
				ok = false
				break
			}
		}
		path = path[:len(path)-1]
		if !ok {
			state[ref] = broken
			return false
		}
		state[ref] = visited
		order = append(order, n)
		return true
	}

	for _, ref := range st.order {
		if _, ok := st.nodes[ref]; ok && state[ref] == unvisited {
			visit(ref)
		}
	}
	return order
}

func cycleError(path []parser.TypeRef, back parser.TypeRef) *errors.BaseError {
	start := 0
	for i, ref := range path {
		if ref == back {
			start = i
			break
		}
	}
	names := make([]string, 0, len(path)-start+1)
	for _, ref := range path[start:] {
		names = append(names, ref.Name)
	}
	names = append(names, back.Name)
	return errors.StructuralMismatch(back.String(), "definition cycle: %s", strings.Join(names, " -> "))
}

// commitAll commits nodes in order. A node whose dependency failed to commit
// is skipped without a further error.
func (st *loadState) commitAll(order []*node) int {
	failed := make(map[parser.TypeRef]bool)
	committed := 0
	for _, n := range order {
		ref := n.decl.Ref()
		skip := false
		for _, dep := range st.dependencies(n) {
			if failed[dep] {
				skip = true
				break
			}
		}
		if skip {
			failed[ref] = true
			st.l.log.Debug("commit skipped", zap.String("class", n.name()))
			continue
		}

		var err error
		if n.service != nil {
			err = n.service.Commit(n.alias, n.apiClass, n.final)
		} else {
			err = n.api.Commit(n.alias)
		}
		if err != nil {
			failed[ref] = true
			errors.Collect(&st.multiErr, withLocation(err, n.decl.Location))
			continue
		}
		committed++
	}
	return committed
}
