package cleanup

import "context"

// Root is an addressable workspace location: an absolute path plus the
// identity of the node it lives on. Matrix-style builds have roots on
// different executors.
type Root struct {
	Path string
	Node string
}

// Resolver yields the flat worklist of roots for one invocation: primary
// workspace, optional alternate workspace, and for fan-out builds every child
// root plus the parent root. Supplied by the host; the coordinator never
// caches its output, because workspaces are reused and rebuilt between
// invocations.
type Resolver interface {
	Resolve(ctx context.Context) ([]Root, error)
}

// StaticRoots is a Resolver over a fixed list.
type StaticRoots []Root

func (s StaticRoots) Resolve(context.Context) ([]Root, error) { return s, nil }
