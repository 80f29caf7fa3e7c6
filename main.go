package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v2"

	"churnsight/churn"
	"churnsight/db"
	qhttp "churnsight/http"
	"churnsight/logging"
	"churnsight/ml"
	"churnsight/monitoring"
	"churnsight/pipeline"
)

type Config struct {
	Http struct {
		Port           int `yaml:"port"`
		TimeoutSeconds int `yaml:"timeout_seconds"`
	} `yaml:"http"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Artifacts struct {
		Model     string `yaml:"model"`
		ModelType string `yaml:"model_type"`
		Encoders  string `yaml:"encoders"`
		Watch     bool   `yaml:"watch"`
	} `yaml:"artifacts"`
	Batch struct {
		Charset string `yaml:"charset"`
	} `yaml:"batch"`
	Cache struct {
		Size int `yaml:"size"`
	} `yaml:"cache"`
	Log logging.Config `yaml:"log"`
}

func main() {
	// 1. Load config
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize logging
	logger, err := logging.Init(config.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logger.Sync()

	// 3. Initialize database
	if err := db.InitDB(config.Database.Path); err != nil {
		logger.Fatalw("Failed to initialize database", "error", err)
	}
	logger.Infow("Database initialized", "path", config.Database.Path)

	// 4. Load classifier artifacts; the service must not start without both
	store := ml.NewArtifactStore(config.Artifacts.ModelType, config.Artifacts.Model, config.Artifacts.Encoders)
	if err := store.Load(); err != nil {
		logger.Fatalw("Failed to load classifier artifacts", "error", err)
	}
	logger.Infow("Artifacts loaded", "model", config.Artifacts.Model, "encoders", config.Artifacts.Encoders)

	cache, err := churn.NewResultCache(config.Cache.Size)
	if err != nil {
		logger.Fatalw("Failed to create result cache", "error", err)
	}

	var watcher *ml.ArtifactWatcher
	if config.Artifacts.Watch {
		watcher, err = ml.WatchArtifacts(store, cache.Purge)
		if err != nil {
			logger.Fatalw("Failed to watch artifacts", "error", err)
		}
		defer watcher.Stop()
	}

	// 5. Wire services
	jobStore, err := pipeline.OpenJobStore(config.Database.Path)
	if err != nil {
		logger.Fatalw("Failed to open batch job store", "error", err)
	}
	defer jobStore.Close()

	hub := monitoring.NewHub()
	go hub.Start()
	defer hub.Stop()

	qhttp.SetAnalyzer(churn.NewAnalyzer(store, cache))
	qhttp.SetBatchRunner(pipeline.NewRunner(store, jobStore, config.Batch.Charset))
	qhttp.SetJobStore(jobStore)
	qhttp.SetHub(hub)

	// 6. Start HTTP server
	serverConfig := qhttp.DefaultServerConfig()
	serverConfig.Port = config.Http.Port
	if config.Http.TimeoutSeconds > 0 {
		serverConfig.Timeout = time.Duration(config.Http.TimeoutSeconds) * time.Second
	}
	server := qhttp.NewServer(serverConfig)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("HTTP server failed", "error", err)
		}
	}()

	// 7. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	if err := server.Stop(); err != nil {
		logger.Warnw("Server forced to shutdown", "error", err)
	}

	logger.Info("Exiting")
}

func loadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
