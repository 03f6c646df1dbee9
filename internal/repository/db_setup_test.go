package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"taskboard/internal/docstore"
)

func TestCreateAdminUserIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()

	require.NoError(t, CreateAdminUser(ctx, store, "admin", "admin"))
	require.NoError(t, CreateAdminUser(ctx, store, "admin", "other"))

	accounts, err := store.Query(ctx, docstore.Accounts, docstore.Where("username", "admin"))
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "admin", accounts[0].Data["role"])

	hash, _ := accounts[0].Data["password"].(string)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("admin")))
}
