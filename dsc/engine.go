// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dsc

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/parsdao/dsc/oracle"
)

// Ledger moves fungible balances. The engine pulls collateral and debt
// tokens into custody with TransferFrom and pays out with Transfer.
type Ledger interface {
	TransferFrom(ctx context.Context, token, from, to common.Address, amount *uint256.Int) error
	Transfer(ctx context.Context, token, to common.Address, amount *uint256.Int) error
}

// Issuer mints and burns the stablecoin. The engine is its only caller.
type Issuer interface {
	Mint(ctx context.Context, to common.Address, amount *uint256.Int) error
	Burn(ctx context.Context, amount *uint256.Int) error
}

// Snapshotter is implemented by collaborators that can undo their own
// effects. A failed operation reverts every collaborator it touched.
type Snapshotter interface {
	Snapshot() int
	RevertToSnapshot(id int)
}

// maxHistory bounds the in-memory liquidation history
const maxHistory = 1024

type operationKey struct{}

// Params wires an Engine to its collaborators.
type Params struct {
	Address   common.Address // custody account, defaults to EngineAddress
	DebtToken common.Address // defaults to StablecoinAddress
	Assets    []Asset
	Oracle    *oracle.Adapter
	DB        database.Database
	Ledger    Ledger
	Issuer    Issuer
	Logs      LogSink
	Log       log.Logger
}

// Engine is the collateral and debt engine. Mutating calls are serialized
// and atomic. Getters may run concurrently with each other.
//
// Collaborators are called with a context derived from the caller's. A
// collaborator calling back into the engine must pass that context (or one
// derived from it): mutating calls then fail with ErrReentrant and getters
// read committed state. A callback made with an unrelated context blocks
// until the operation completes.
type Engine struct {
	mu sync.RWMutex

	address   common.Address
	debtToken common.Address
	db        database.Database

	collateral *collateralLedger
	debt       *debtAccount
	ledger     Ledger
	issuer     Issuer

	logs    LogSink
	log     log.Logger
	history []*LiquidationEvent
}

// NewEngine validates [p] and returns an engine over its collaborators.
func NewEngine(p Params) (*Engine, error) {
	if p.Ledger == nil || p.Issuer == nil {
		return nil, ErrMissingBackend
	}
	if len(p.Assets) == 0 {
		return nil, ErrNoCollateral
	}
	if p.Address == (common.Address{}) {
		p.Address = EngineAddress
	}
	if p.DebtToken == (common.Address{}) {
		p.DebtToken = StablecoinAddress
	}

	seen := make(map[common.Address]struct{}, len(p.Assets))
	assets := make([]Asset, 0, len(p.Assets))
	for _, asset := range p.Assets {
		if asset.Token == (common.Address{}) {
			return nil, ErrZeroAddress
		}
		if asset.Feed == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingFeed, asset.Token.Hex())
		}
		if _, ok := seen[asset.Token]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateToken, asset.Token.Hex())
		}
		seen[asset.Token] = struct{}{}
		assets = append(assets, asset)
	}

	if p.Oracle == nil {
		p.Oracle = oracle.NewAdapter()
	}
	if p.DB == nil {
		p.DB = memdb.New()
	}
	if p.Log == nil {
		p.Log = log.NewNoOpLogger()
	}

	return &Engine{
		address:    p.Address,
		debtToken:  p.DebtToken,
		db:         prefixdb.New(enginePrefix, p.DB),
		collateral: newCollateralLedger(p.Address, assets, p.Oracle, p.Ledger),
		debt: &debtAccount{
			custody: p.Address,
			token:   p.DebtToken,
			ledger:  p.Ledger,
			issuer:  p.Issuer,
		},
		ledger: p.Ledger,
		issuer: p.Issuer,
		logs:   p.Logs,
		log:    p.Log,
	}, nil
}

// Address returns the custody account holding collateral.
func (e *Engine) Address() common.Address {
	return e.address
}

// DebtToken returns the stablecoin address.
func (e *Engine) DebtToken() common.Address {
	return e.debtToken
}

// DepositCollateral moves [amount] of [token] from [user] into custody and
// credits their position.
func (e *Engine) DepositCollateral(ctx context.Context, user, token common.Address, amount *big.Int) error {
	amt, err := toAmount(amount)
	if err != nil {
		return err
	}
	return e.execute(ctx, "depositCollateral", func(t *tx) error {
		return e.collateral.deposit(t, user, token, amt)
	})
}

// DepositCollateralAndMintDsc deposits collateral and mints against it in
// one step.
func (e *Engine) DepositCollateralAndMintDsc(ctx context.Context, user, token common.Address, collateral, mint *big.Int) error {
	collateralAmt, err := toAmount(collateral)
	if err != nil {
		return err
	}
	mintAmt, err := toAmount(mint)
	if err != nil {
		return err
	}
	return e.execute(ctx, "depositCollateralAndMintDsc", func(t *tx) error {
		if err := e.collateral.deposit(t, user, token, collateralAmt); err != nil {
			return err
		}
		return e.mint(t, user, mintAmt)
	})
}

// RedeemCollateral returns [amount] of [token] to [user]. The user must stay
// solvent afterwards.
func (e *Engine) RedeemCollateral(ctx context.Context, user, token common.Address, amount *big.Int) error {
	amt, err := toAmount(amount)
	if err != nil {
		return err
	}
	return e.execute(ctx, "redeemCollateral", func(t *tx) error {
		if err := e.collateral.redeem(t, user, user, token, amt); err != nil {
			return err
		}
		return e.requireHealthy(t, user)
	})
}

// RedeemCollateralForDsc burns [burn] of the user's debt, then redeems
// [collateral] of [token], checking solvency once at the end.
func (e *Engine) RedeemCollateralForDsc(ctx context.Context, user, token common.Address, collateral, burn *big.Int) error {
	collateralAmt, err := toAmount(collateral)
	if err != nil {
		return err
	}
	burnAmt, err := toAmount(burn)
	if err != nil {
		return err
	}
	return e.execute(ctx, "redeemCollateralForDsc", func(t *tx) error {
		if err := e.debt.burn(t, burnAmt, user, user); err != nil {
			return err
		}
		if err := e.collateral.redeem(t, user, user, token, collateralAmt); err != nil {
			return err
		}
		return e.requireHealthy(t, user)
	})
}

// MintDsc issues [amount] of stablecoin to [user] as new debt. Fails with a
// *HealthFactorError if the position would become insolvent.
func (e *Engine) MintDsc(ctx context.Context, user common.Address, amount *big.Int) error {
	amt, err := toAmount(amount)
	if err != nil {
		return err
	}
	return e.execute(ctx, "mintDsc", func(t *tx) error {
		return e.mint(t, user, amt)
	})
}

// BurnDsc repays [amount] of [user]'s debt with their own stablecoin.
func (e *Engine) BurnDsc(ctx context.Context, user common.Address, amount *big.Int) error {
	amt, err := toAmount(amount)
	if err != nil {
		return err
	}
	return e.execute(ctx, "burnDsc", func(t *tx) error {
		if err := e.debt.burn(t, amt, user, user); err != nil {
			return err
		}
		return e.requireHealthy(t, user)
	})
}

func (e *Engine) mint(t *tx, user common.Address, amount *uint256.Int) error {
	if err := e.debt.mint(t, user, amount); err != nil {
		return err
	}
	return e.requireHealthy(t, user)
}

// requireHealthy fails with a *HealthFactorError if [user] is insolvent in
// the staged state of [t].
func (e *Engine) requireHealthy(t *tx, user common.Address) error {
	hf, err := e.healthFactor(t.ctx, t.db, user)
	if err != nil {
		return err
	}
	if !IsSolvent(hf) {
		return &HealthFactorError{Account: user, HealthFactor: hf}
	}
	return nil
}

func (e *Engine) healthFactor(ctx context.Context, db database.KeyValueReader, user common.Address) (*uint256.Int, error) {
	debt, err := e.debt.balance(db, user)
	if err != nil {
		return nil, err
	}
	if debt.IsZero() {
		return MaxHealthFactor.Clone(), nil
	}
	value, err := e.collateral.totalValue(ctx, db, user)
	if err != nil {
		return nil, err
	}
	return HealthFactor(debt, value), nil
}

func (e *Engine) accountInformation(ctx context.Context, db database.KeyValueReader, user common.Address) (debt, value *uint256.Int, err error) {
	debt, err = e.debt.balance(db, user)
	if err != nil {
		return nil, nil, err
	}
	value, err = e.collateral.totalValue(ctx, db, user)
	if err != nil {
		return nil, nil, err
	}
	return debt, value, nil
}

// AccountInformation returns [user]'s debt and the USD value of their
// collateral.
func (e *Engine) AccountInformation(ctx context.Context, user common.Address) (debt, collateralValue *uint256.Int, err error) {
	defer e.rlock(ctx)()
	return e.accountInformation(ctx, e.db, user)
}

// AccountCollateralValue returns the USD value of [user]'s collateral.
func (e *Engine) AccountCollateralValue(ctx context.Context, user common.Address) (*uint256.Int, error) {
	defer e.rlock(ctx)()
	return e.collateral.totalValue(ctx, e.db, user)
}

// HealthFactor returns [user]'s current health factor.
func (e *Engine) HealthFactor(ctx context.Context, user common.Address) (*uint256.Int, error) {
	defer e.rlock(ctx)()
	return e.healthFactor(ctx, e.db, user)
}

// CalculateHealthFactor is HealthFactor for arbitrary inputs.
func (e *Engine) CalculateHealthFactor(debt, collateralValue *uint256.Int) *uint256.Int {
	return HealthFactor(debt, collateralValue)
}

// Debt returns the stablecoin [user] has minted and not repaid.
func (e *Engine) Debt(ctx context.Context, user common.Address) (*uint256.Int, error) {
	defer e.rlock(ctx)()
	return e.debt.balance(e.db, user)
}

// CollateralBalance returns [user]'s deposited balance of [token].
func (e *Engine) CollateralBalance(ctx context.Context, user, token common.Address) (*uint256.Int, error) {
	defer e.rlock(ctx)()
	return e.collateral.balance(e.db, user, token)
}

// CollateralTokens returns the accepted collateral tokens in configuration order.
func (e *Engine) CollateralTokens() []common.Address {
	tokens := make([]common.Address, len(e.collateral.assets))
	for i, asset := range e.collateral.assets {
		tokens[i] = asset.Token
	}
	return tokens
}

// CollateralPriceFeed returns the feed pricing [token].
func (e *Engine) CollateralPriceFeed(token common.Address) (oracle.Feed, error) {
	feed, ok := e.collateral.feeds[token]
	if !ok {
		return nil, ErrTokenNotAllowed
	}
	return feed, nil
}

// USDValue prices [amount] of [token] in 18-decimal USD.
func (e *Engine) USDValue(ctx context.Context, token common.Address, amount *uint256.Int) (*uint256.Int, error) {
	return e.collateral.usdValue(ctx, token, amount)
}

// TokenAmountFromUSD converts an 18-decimal USD amount into [token] units.
func (e *Engine) TokenAmountFromUSD(ctx context.Context, token common.Address, usd *uint256.Int) (*uint256.Int, error) {
	return e.collateral.tokenAmountFromUSD(ctx, token, usd)
}

// tx is the staging area of a single mutating call. Position writes go to
// db; collaborator calls queue until every staged check has passed.
type tx struct {
	ctx    context.Context
	db     *versiondb.Database
	calls  []pendingCall
	events []any
}

type pendingCall struct {
	name string
	fn   func(context.Context) error
}

func (t *tx) call(name string, fn func(context.Context) error) {
	t.calls = append(t.calls, pendingCall{name: name, fn: fn})
}

func (t *tx) emit(event any) {
	t.events = append(t.events, event)
}

// execute runs [fn] as one atomic operation. Either every position write,
// collaborator call and event of the operation takes effect or none does.
func (e *Engine) execute(ctx context.Context, op string, fn func(*tx) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Value(operationKey{}) == e {
		return ErrReentrant
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	t := &tx{
		ctx: context.WithValue(ctx, operationKey{}, e),
		db:  versiondb.New(e.db),
	}
	snapshots := e.snapshot()

	err := fn(t)
	for i := 0; err == nil && i < len(t.calls); i++ {
		err = t.calls[i].fn(t.ctx)
	}
	if err == nil {
		err = t.db.Commit()
	}
	if err != nil {
		t.db.Abort()
		e.revert(snapshots)
		e.log.Warn("dsc operation reverted",
			"op", op,
			"error", err,
		)
		return err
	}

	for _, event := range t.events {
		e.publish(event)
	}
	e.log.Debug("dsc operation committed",
		"op", op,
		"calls", len(t.calls),
		"events", len(t.events),
	)
	return nil
}

type snapshot struct {
	target Snapshotter
	id     int
}

func (e *Engine) snapshot() []snapshot {
	var snapshots []snapshot
	for _, c := range []any{e.ledger, e.issuer} {
		if s, ok := c.(Snapshotter); ok {
			snapshots = append(snapshots, snapshot{target: s, id: s.Snapshot()})
		}
	}
	return snapshots
}

func (e *Engine) revert(snapshots []snapshot) {
	for i := len(snapshots) - 1; i >= 0; i-- {
		snapshots[i].target.RevertToSnapshot(snapshots[i].id)
	}
}

// rlock takes the read lock unless [ctx] belongs to an operation in progress,
// in which case the caller is a collaborator reading committed state.
func (e *Engine) rlock(ctx context.Context) func() {
	if ctx != nil && ctx.Value(operationKey{}) == e {
		return func() {}
	}
	e.mu.RLock()
	return e.mu.RUnlock
}

// toAmount converts a caller supplied amount. Zero, negative and oversized
// amounts are rejected.
func toAmount(amount *big.Int) (*uint256.Int, error) {
	if amount == nil || amount.Sign() == 0 {
		return nil, ErrZeroAmount
	}
	if amount.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	amt, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, ErrAmountOverflow
	}
	return amt, nil
}
