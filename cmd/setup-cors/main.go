// Command setup-cors applies the public-read CORS policy to the media
// bucket. It uses the service key pair, which the server never loads.
package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/snap-point/gallery/backend"
	"github.com/snap-point/gallery/config"
	"github.com/snap-point/gallery/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()
	lg := logger.Logger

	s := cfg.Storage
	if s.Endpoint == "" || s.ServiceAccessKeyID == "" || s.ServiceSecretAccessKey == "" {
		lg.Fatal("storage endpoint and service key pair are required")
	}

	storage := backend.NewStorage(
		backend.NewS3Client(s.Endpoint, s.ServiceAccessKeyID, s.ServiceSecretAccessKey, s.Region),
		s.BucketName,
		s.PublicURL,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	policy := backend.DefaultCORSPolicy()
	if err := storage.ConfigureCORS(ctx, policy); err != nil {
		lg.Fatal("Failed to configure bucket CORS", zap.String("bucket", s.BucketName), zap.Error(err))
	}
	lg.Info("bucket CORS configured",
		zap.String("bucket", storage.Bucket()),
		zap.Strings("origins", policy.AllowedOrigins),
		zap.Strings("methods", policy.AllowedMethods),
		zap.Int32("max_age", policy.MaxAgeSeconds),
	)
}
