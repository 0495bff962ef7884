//go:build tools
// +build tools

// This file declares tool dependencies for this module.
//
// These imports are not used at runtime. They keep go-based tools invoked
// via `go generate`, such as mockgen, tracked in go.mod and go.sum.
package chatroom

import (
	_ "go.uber.org/mock/mockgen"
)
