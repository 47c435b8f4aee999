// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dsc

import (
	"sync"

	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
)

// Event signatures
const (
	CollateralDepositedSignature = "CollateralDeposited(address,address,uint256)"
	CollateralRedeemedSignature  = "CollateralRedeemed(address,address,address,uint256)"
)

// Event topics (keccak256 of the signatures), for filtering engine logs.
// They equal the IDs EngineABI assigns to the same events.
var (
	CollateralDepositedTopic = common.BytesToHash(crypto.Keccak256([]byte(CollateralDepositedSignature)))
	CollateralRedeemedTopic  = common.BytesToHash(crypto.Keccak256([]byte(CollateralRedeemedSignature)))
)

// LogSink receives the logs of committed operations, in emission order.
type LogSink interface {
	AddLog(log *types.Log)
}

// LogBuffer is a LogSink that keeps every log in memory.
type LogBuffer struct {
	mu   sync.Mutex
	logs []*types.Log
}

func (b *LogBuffer) AddLog(log *types.Log) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logs = append(b.logs, log)
}

// Logs returns a copy of the collected logs.
func (b *LogBuffer) Logs() []*types.Log {
	b.mu.Lock()
	defer b.mu.Unlock()
	logs := make([]*types.Log, len(b.logs))
	copy(logs, b.logs)
	return logs
}

// Reset drops every collected log.
func (b *LogBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logs = nil
}

// Amounts are packed as *big.Int, the ABI's uint256 type, indexed or not.
func (ev *CollateralDeposited) pack() ([]common.Hash, []byte, error) {
	return EngineABI.PackEvent("CollateralDeposited", ev.User, ev.Token, ev.Amount.ToBig())
}

func (ev *CollateralRedeemed) pack() ([]common.Hash, []byte, error) {
	return EngineABI.PackEvent("CollateralRedeemed", ev.From, ev.To, ev.Token, ev.Amount.ToBig())
}

type packer interface {
	pack() ([]common.Hash, []byte, error)
}

// publish delivers one committed event.
func (e *Engine) publish(event any) {
	switch ev := event.(type) {
	case *LiquidationEvent:
		e.recordLiquidation(ev)
	case packer:
		if e.logs == nil {
			return
		}
		topics, data, err := ev.pack()
		if err != nil {
			// Event arguments are static; a packing failure is a bug.
			e.log.Error("failed to pack event",
				"event", event,
				"error", err,
			)
			return
		}
		e.logs.AddLog(&types.Log{
			Address: e.address,
			Topics:  topics,
			Data:    data,
		})
	}
}
