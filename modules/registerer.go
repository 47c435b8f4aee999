// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package modules keeps the registry of engine modules by config key and
// address.
package modules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/luxfi/geth/common"
)

// Config is the configuration of a registered module.
type Config interface {
	Key() string
	Verify() error
}

// Configurator creates empty configurations for a module.
type Configurator interface {
	MakeConfig() Config
}

// Module binds a config key to the address the module is deployed at.
type Module struct {
	ConfigKey    string
	Address      common.Address
	Configurator Configurator
}

type moduleArray []Module

func (m moduleArray) Len() int      { return len(m) }
func (m moduleArray) Swap(i, j int) { m[i], m[j] = m[j], m[i] }
func (m moduleArray) Less(i, j int) bool {
	return bytes.Compare(m[i].Address.Bytes(), m[j].Address.Bytes()) < 0
}

// AddressRange represents a continuous range of addresses
type AddressRange struct {
	Start common.Address
	End   common.Address
}

// Contains returns true iff [addr] is contained within the (inclusive)
// range of addresses defined by [a].
func (a *AddressRange) Contains(addr common.Address) bool {
	addrBytes := addr.Bytes()
	return bytes.Compare(addrBytes, a.Start[:]) >= 0 && bytes.Compare(addrBytes, a.End[:]) <= 0
}

// BlackholeAddr is the address where assets are burned
var BlackholeAddr = common.Address{
	1, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

var (
	// registeredModules is a list of Module to preserve order
	// for deterministic iteration
	registeredModules = make([]Module, 0)

	// Reserved address ranges (low-byte format: 0x0000...XXXX)
	//
	// 0x9000-0x90FF: Markets (DEX, lending)
	// 0x9100-0x91FF: Synthetic assets (stablecoin engines, debt tokens)
	reservedRanges = []AddressRange{
		// Markets (0x9000-0x90FF)
		{
			Start: common.HexToAddress("0x0000000000000000000000000000000000009000"),
			End:   common.HexToAddress("0x00000000000000000000000000000000000090ff"),
		},
		// Synthetic assets (0x9100-0x91FF)
		{
			Start: common.HexToAddress("0x0000000000000000000000000000000000009100"),
			End:   common.HexToAddress("0x00000000000000000000000000000000000091ff"),
		},
	}
)

// ReservedAddress returns true if [addr] is in a reserved module range
func ReservedAddress(addr common.Address) bool {
	for _, reservedRange := range reservedRanges {
		if reservedRange.Contains(addr) {
			return true
		}
	}

	return false
}

// RegisterModule registers a module
func RegisterModule(m Module) error {
	address := m.Address
	key := m.ConfigKey

	if address == BlackholeAddr {
		return fmt.Errorf("address %s overlaps with blackhole address", address)
	}
	if !ReservedAddress(address) {
		return fmt.Errorf("address %s not in a reserved range", address)
	}
	if m.Configurator == nil {
		return fmt.Errorf("module %s has no configurator", key)
	}

	for _, registeredModule := range registeredModules {
		if registeredModule.ConfigKey == key {
			return fmt.Errorf("name %s already used by a module", key)
		}
		if registeredModule.Address == address {
			return fmt.Errorf("address %s already used by a module", address)
		}
	}
	// sort by address to ensure deterministic iteration
	registeredModules = insertSortedByAddress(registeredModules, m)
	return nil
}

func GetModuleByAddress(address common.Address) (Module, bool) {
	for _, m := range registeredModules {
		if m.Address == address {
			return m, true
		}
	}
	return Module{}, false
}

func GetModule(key string) (Module, bool) {
	for _, m := range registeredModules {
		if m.ConfigKey == key {
			return m, true
		}
	}
	return Module{}, false
}

func RegisteredModules() []Module {
	return registeredModules
}

// ParseConfig decodes and verifies the JSON configuration of module [key].
func ParseConfig(key string, raw []byte) (Config, error) {
	m, ok := GetModule(key)
	if !ok {
		return nil, fmt.Errorf("unknown module %s", key)
	}
	cfg := m.Configurator.MakeConfig()
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s config: %w", key, err)
	}
	if err := cfg.Verify(); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", key, err)
	}
	return cfg, nil
}

func insertSortedByAddress(data []Module, m Module) []Module {
	data = append(data, m)
	sort.Sort(moduleArray(data))
	return data
}
