package engine

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"
)

// PooledEngine bounds the number of ledger operations executing at once by
// running the wrapped Engine on an ants worker pool. Callers still block
// until their operation finishes; the pool only caps concurrency.
type PooledEngine struct {
	base   Engine
	pool   *ants.Pool
	logger *slog.Logger
}

type PoolConfig struct {
	Size int
}

func NewPooledEngine(base Engine, config PoolConfig, logger *slog.Logger) (*PooledEngine, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &PooledEngine{
		base:   base,
		pool:   pool,
		logger: logger,
	}, nil
}

type operationOutcome struct {
	result *OperationResult
	err    error
}

type transferOutcome struct {
	result *TransferResult
	err    error
}

// Deposit submits the deposit to the worker pool and waits for its result.
func (e *PooledEngine) Deposit(ctx context.Context, ref Ref, amount int64) (*OperationResult, error) {
	resultChan := make(chan operationOutcome, 1)

	err := e.pool.Submit(func() {
		result, err := e.base.Deposit(ctx, ref, amount)
		resultChan <- operationOutcome{result: result, err: err}
	})
	if err != nil {
		e.logger.Error("Failed to submit deposit to worker pool", "error", err)
		return nil, err
	}

	outcome := <-resultChan
	return outcome.result, outcome.err
}

// Withdraw submits the withdrawal to the worker pool and waits for its result.
func (e *PooledEngine) Withdraw(ctx context.Context, ref Ref, amount int64) (*OperationResult, error) {
	resultChan := make(chan operationOutcome, 1)

	err := e.pool.Submit(func() {
		result, err := e.base.Withdraw(ctx, ref, amount)
		resultChan <- operationOutcome{result: result, err: err}
	})
	if err != nil {
		e.logger.Error("Failed to submit withdrawal to worker pool", "error", err)
		return nil, err
	}

	outcome := <-resultChan
	return outcome.result, outcome.err
}

// Transfer submits the transfer to the worker pool and waits for its result.
func (e *PooledEngine) Transfer(ctx context.Context, source, dest Ref, amount int64) (*TransferResult, error) {
	resultChan := make(chan transferOutcome, 1)

	err := e.pool.Submit(func() {
		result, err := e.base.Transfer(ctx, source, dest, amount)
		resultChan <- transferOutcome{result: result, err: err}
	})
	if err != nil {
		e.logger.Error("Failed to submit transfer to worker pool", "error", err)
		return nil, err
	}

	outcome := <-resultChan
	return outcome.result, outcome.err
}

// Shutdown gracefully shuts down the worker pool.
func (e *PooledEngine) Shutdown() {
	e.logger.Info("Shutting down worker pool", "running_workers", e.pool.Running())
	e.pool.Release()
}

// Running returns the number of running workers in the pool.
func (e *PooledEngine) Running() int {
	return e.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (e *PooledEngine) Capacity() int {
	return e.pool.Cap()
}
