package view

import "errors"

var (
	// ErrNoRenderTarget reports a mount without a usable container.
	ErrNoRenderTarget = errors.New("view: no render target")
	// ErrUnknownNode reports an event naming a node the view does not hold.
	ErrUnknownNode = errors.New("view: unknown node")
	// ErrUnknownKind reports an unregistered node or edge kind.
	ErrUnknownKind = errors.New("view: unknown kind")
	// ErrEmptyPlan reports a mount or data change without a root node.
	ErrEmptyPlan = errors.New("view: empty plan")
)
