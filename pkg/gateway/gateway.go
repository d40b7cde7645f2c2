// Package gateway provides the public API for embedding the interview
// gateway. This is the stable API for external consumers.
package gateway

import (
	"github.com/tjfontaine/interview-gateway/internal/runtime"
)

// Gateway runs the interview service and its HTTP boundary.
// See internal/runtime.Gateway for full documentation.
type Gateway = runtime.Gateway

// Option is a functional option for configuring a Gateway.
type Option = runtime.Option

// New creates a new Gateway with the given options.
// Example:
//
//	gw, err := gateway.New(
//	    gateway.WithFileConfig("config.yaml"),
//	    gateway.WithSQLite("./data/interviews.db"),
//	)
var New = runtime.New

// Configuration options
var (
	// Config sources
	WithConfig     = runtime.WithConfig
	WithFileConfig = runtime.WithFileConfig

	// Storage
	WithSQLite       = runtime.WithSQLite
	WithMemoryStore  = runtime.WithMemoryStore
	WithSessionStore = runtime.WithSessionStore

	// Admission
	WithBasicPolicy     = runtime.WithBasicPolicy
	WithAdmissionPolicy = runtime.WithAdmissionPolicy

	// Advanced options
	WithLogger   = runtime.WithLogger
	WithProvider = runtime.WithProvider
)
