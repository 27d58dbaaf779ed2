package database

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func TestTxFromContext(t *testing.T) {
	logger := getTestLogger()

	t.Run("bare context carries no transaction", func(t *testing.T) {
		_, ok := TxFromContext(context.Background())
		assert.False(t, ok)
	})

	t.Run("open transaction is returned", func(t *testing.T) {
		tx := NewTx(nil, logger)
		ctx := context.WithValue(context.Background(), txStatusKey, "open")
		ctx = context.WithValue(ctx, txKey, tx)

		got, ok := TxFromContext(ctx)
		require.True(t, ok)
		assert.Same(t, tx, got)
	})

	t.Run("closed transaction is ignored", func(t *testing.T) {
		tx := &Transaction{logger: logger, isClosed: true}
		ctx := context.WithValue(context.Background(), txStatusKey, "open")
		ctx = context.WithValue(ctx, txKey, Tx(tx))

		_, ok := TxFromContext(ctx)
		assert.False(t, ok)
	})

	t.Run("transaction without open status is ignored", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), txKey, NewTx(nil, logger))

		_, ok := TxFromContext(ctx)
		assert.False(t, ok)
	})
}

func TestExecerFromContext(t *testing.T) {
	logger := getTestLogger()
	db := NewDatabaseInstance(nil, logger)

	t.Run("falls back to the database handle", func(t *testing.T) {
		assert.Same(t, db, ExecerFromContext(context.Background(), db))
	})

	t.Run("prefers the context transaction", func(t *testing.T) {
		tx := NewTx(nil, logger)
		ctx := context.WithValue(context.Background(), txStatusKey, "open")
		ctx = context.WithValue(ctx, txKey, tx)

		assert.Same(t, tx, ExecerFromContext(ctx, db))
	})
}
