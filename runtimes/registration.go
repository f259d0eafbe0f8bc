// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

// Package runtimes provides the function kinds pipa understands natively
package runtimes

import (
	"fmt"
	"slices"
	"sync"
)

var _register sync.RWMutex

// Runtime is a typed function spec, only implementable on structs due to how the params re-parsing logic works
type Runtime interface {
	Kind() string
	Validate() error
}

var _registrations = map[string]func() Runtime{
	"job":     func() Runtime { return &job{} },
	"serving": func() Runtime { return &serving{} },
	"remote":  func() Runtime { return &remote{} },
	"nop":     func() Runtime { return &nop{} },
}

// Get retrieves a new instance of a registered runtime kind
//
// Returns nil if the kind doesn't exist
func Get(name string) Runtime {
	_register.RLock()
	factory, exists := _registrations[name]
	_register.RUnlock()

	if !exists {
		return nil
	}
	return factory()
}

// Register registers a new runtime kind
func Register(name string, registrationFunc func() Runtime) error {
	_register.Lock()
	defer _register.Unlock()

	_, exists := _registrations[name]
	if exists {
		return fmt.Errorf("%q is already registered", name)
	}

	if name == "" {
		return fmt.Errorf("runtime kind cannot be empty")
	}

	if registrationFunc == nil {
		return fmt.Errorf("registration function cannot be nil")
	}

	_registrations[name] = registrationFunc
	return nil
}

// Names returns a list of all runtime kinds
func Names() []string {
	_register.RLock()
	defer _register.RUnlock()

	result := make([]string, 0, len(_registrations))
	for name := range _registrations {
		result = append(result, name)
	}
	slices.Sort(result)
	return result
}
