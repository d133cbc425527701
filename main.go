package main

import (
	"chatapp-client/internal/actions"
	"chatapp-client/internal/database"
	"chatapp-client/internal/docstore"
	"chatapp-client/internal/handlers"
	"chatapp-client/internal/hub"
	"chatapp-client/internal/keyValue"
	"chatapp-client/internal/models"
	"chatapp-client/internal/notify"
	"chatapp-client/internal/session"
	"chatapp-client/internal/snowflake"
	"chatapp-client/internal/voice"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	envFile    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "chatapp-client",
	Short:         "Local session service for the chat app",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local api and websocket hub",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json", "path to the config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file with secrets to load into the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "overrides LogLevel from the config file")

	rootCmd.AddCommand(serveCmd)
}

func setupLogger(cfg models.ConfigFile) (*zap.SugaredLogger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout"}
	if cfg.LogToFile {
		config.OutputPaths = append(config.OutputPaths, "app.log")
	}
	config.Level = level

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return logger.Sugar(), nil
}

func setupRedis(ctx context.Context, cfg models.ConfigFile) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	err := rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func setupDocstore(ctx context.Context, sugar *zap.SugaredLogger, cfg *models.ConfigFile, redisClient *redis.Client) (docstore.Store, error) {
	switch cfg.Backend {
	case "firestore":
		return docstore.NewFirestore(ctx, sugar, cfg.FirestoreProjectID, cfg.FirestoreCredentials)
	case "mongo":
		return docstore.NewMongo(ctx, sugar, cfg.MongoURI, cfg.MongoDatabase)
	case database.DialectSqlite, database.DialectMysql:
		db, dialect, err := database.Setup(sugar, cfg)
		if err != nil {
			return nil, err
		}

		var notifier notify.Notifier
		if redisClient != nil {
			notifier = notify.NewRedis(sugar, redisClient)
		} else {
			notifier = notify.NewLocal(sugar)
		}
		return docstore.NewSQL(sugar, db, dialect, notifier), nil
	default:
		return nil, fmt.Errorf("unknown backend [%s]", cfg.Backend)
	}
}

func serve(ctx context.Context) error {
	fmt.Println("Reading config file...")
	cfg, err := readConfigFile(configPath)
	if err != nil {
		return err
	}
	if err := loadEnv(&cfg, envFile); err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	applyDefaults(&cfg)

	fmt.Println("Setting up logger...")
	sugar, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	defer sugar.Sync()

	var redisClient *redis.Client
	if !cfg.SelfContained {
		fmt.Println("Connecting to redis...")
		redisClient, err = setupRedis(ctx, cfg)
		if err != nil {
			return err
		}
		defer redisClient.Close()
	}

	fmt.Printf("Connecting to %s backend...\n", cfg.Backend)
	db, err := setupDocstore(ctx, sugar, &cfg, redisClient)
	if err != nil {
		return err
	}
	defer db.Close()

	ids, err := snowflake.New(cfg.SnowflakeWorkerID)
	if err != nil {
		return err
	}

	kv := keyValue.New(sugar, redisClient, cfg.SelfContained)
	defer kv.Close()

	profiles := keyValue.NewProfiles(kv, db, time.Duration(cfg.ProfileCacheMinutes)*time.Minute)

	sessionStore := session.New(sugar, db, profiles, cfg.PresenceFilterLimit)
	defer sessionStore.Close()

	// voice stays disabled until livekit credentials are configured
	var tokens *voice.TokenIssuer
	if cfg.LiveKitAPIKey != "" && cfg.LiveKitAPISecret != "" {
		tokens, err = voice.NewTokenIssuer(cfg.LiveKitAPIKey, cfg.LiveKitAPISecret, time.Duration(cfg.VoiceTokenTTLMinutes)*time.Minute)
		if err != nil {
			return err
		}
	} else {
		sugar.Warn("LiveKit credentials missing, voice tokens are disabled")
	}

	wsHub := hub.New(sugar, ids, cfg.AllowedOrigins)
	defer wsHub.Close()

	unsubscribe := sessionStore.Subscribe(func(state session.State) {
		if err := wsHub.Broadcast(hub.SessionUpdated, state); err != nil {
			sugar.Error(err)
		}
	})
	defer unsubscribe()

	fmt.Printf("Local api is running on http://%s:%s\n", cfg.Address, cfg.Port)

	return handlers.Setup(&cfg, handlers.Deps{
		Sugar:    sugar,
		Session:  sessionStore,
		Actions:  actions.New(sugar, db, ids, &cfg),
		Profiles: profiles,
		Settings: keyValue.NewSettings(kv),
		Tokens:   tokens,
		Presence: voice.NewPresence(sugar, db),
		Hub:      wsHub,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
