package main

import (
	"chatapp-client/internal/models"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

func readConfigFile(path string) (models.ConfigFile, error) {
	var cfg models.ConfigFile

	configFile, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer configFile.Close()

	bytes, err := io.ReadAll(configFile)
	if err != nil {
		return cfg, err
	}

	err = json.Unmarshal(bytes, &cfg)
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadEnv fills secrets from envFile (missing file is fine) and the process
// environment. Values already in config.json win.
func loadEnv(cfg *models.ConfigFile, envFile string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	overlay := map[string]*string{
		"LIVEKIT_API_KEY":                &cfg.LiveKitAPIKey,
		"LIVEKIT_API_SECRET":             &cfg.LiveKitAPISecret,
		"GOOGLE_APPLICATION_CREDENTIALS": &cfg.FirestoreCredentials,
		"REDIS_PASSWORD":                 &cfg.RedisPassword,
		"DB_PASSWORD":                    &cfg.DbPassword,
		"MONGODB_URI":                    &cfg.MongoURI,
	}
	for key, field := range overlay {
		if *field != "" {
			continue
		}
		*field = os.Getenv(key)
	}
	return nil
}

func applyDefaults(cfg *models.ConfigFile) {
	if cfg.Address == "" {
		cfg.Address = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "3000"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Backend == "" {
		cfg.Backend = "sqlite"
	}
	if cfg.SqlitePath == "" {
		cfg.SqlitePath = "./database.db"
	}
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = "chatapp"
	}
	if cfg.RedisAddress == "" {
		cfg.RedisAddress = "localhost:6379"
	}
	if cfg.DefaultRoleName == "" {
		cfg.DefaultRoleName = "everyone"
	}
	if cfg.DefaultTextChannel == "" {
		cfg.DefaultTextChannel = "general"
	}
	if cfg.DefaultVoiceChannel == "" {
		cfg.DefaultVoiceChannel = "General"
	}
	if cfg.PresenceFilterLimit <= 0 || cfg.PresenceFilterLimit > 30 {
		cfg.PresenceFilterLimit = 30
	}
	if cfg.ProfileCacheMinutes <= 0 {
		cfg.ProfileCacheMinutes = 15
	}
	if cfg.VoiceTokenTTLMinutes <= 0 {
		cfg.VoiceTokenTTLMinutes = 360
	}
}
