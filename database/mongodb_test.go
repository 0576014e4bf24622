package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func TestConnectMongoDB_Unreachable(t *testing.T) {
	store, err := ConnectMongoDB(context.Background(), "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200&connectTimeoutMS=200", "chat_test")

	assert.ErrorContains(t, err, "ping mongodb")
	assert.Nil(t, store)
}

func TestMongoStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mongodb container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() { testcontainers.TerminateContainer(container) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	store, err := ConnectMongoDB(ctx, uri, "chat_test")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(context.Background()) })

	runStoreContract(t, store)
}
