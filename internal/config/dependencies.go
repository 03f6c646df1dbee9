package config

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"

	"taskboard/internal/docstore"
	"taskboard/internal/notify"
	myws "taskboard/internal/websocket"
	"taskboard/pkg/crypto"
)

var (
	// Global dependency yang akan digunakan di seluruh aplikasi
	Store         docstore.Store
	Subscriptions *docstore.Subscriptions
	SecretKey     = []byte("secret")
	Validate      = validator.New()
	Ctx           = context.Background()
	RedisClient   *redis.Client
	Cipher        *crypto.Cipher
	Mailer        *notify.Mailer
	Hub           *myws.Hub
	UploadDir     = "uploads"
)
