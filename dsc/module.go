// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dsc

import (
	"github.com/parsdao/dsc/modules"
)

// Module registers the engine at EngineAddress.
var Module = modules.Module{
	ConfigKey:    ConfigKey,
	Address:      EngineAddress,
	Configurator: &configurator{},
}

type configurator struct{}

func init() {
	if err := modules.RegisterModule(Module); err != nil {
		panic(err)
	}
}

func (*configurator) MakeConfig() modules.Config {
	cfg := DefaultConfig()
	return &cfg
}
