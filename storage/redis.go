package storage

import (
	"log"

	"github.com/SoftwareDeveloper2002/iskolardev-node/config"

	"github.com/go-redis/redis/v8"
)

func InitializeRedis(cfg config.Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: "",
		DB:       0,
	})

	log.Println("Redis initialized with address:", cfg.RedisURL)
	return client
}
