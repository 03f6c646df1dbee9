package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taskboard/configs"
)

func TestPostgresDSN(t *testing.T) {
	cfg := configs.Config{DBHost: "db", DBPort: 5432, DBUser: "u", DBPassword: "p"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=taskboard_test sslmode=disable",
		PostgresDSN(cfg, "taskboard_test"))
}
