// Package app assembles the quote service from configuration. The web server
// and the CLI share it so both see the same storage and renderer settings.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/LucaVano/app-oferte-10-05/internal/config"
	"github.com/LucaVano/app-oferte-10-05/internal/email"
	"github.com/LucaVano/app-oferte-10-05/internal/formdecode"
	"github.com/LucaVano/app-oferte-10-05/internal/pdf"
	"github.com/LucaVano/app-oferte-10-05/internal/quotes"
	"github.com/LucaVano/app-oferte-10-05/internal/r2"
	"github.com/LucaVano/app-oferte-10-05/internal/store"
	"github.com/LucaVano/app-oferte-10-05/internal/uploads"
)

// Components are the long-lived parts built from a Config.
type Components struct {
	Quotes  *quotes.Service
	Store   *store.Store
	Uploads *uploads.Store
	// Archived is true when rendered documents are copied to R2.
	Archived bool
}

// Build creates the data directories and wires the quote service. An R2
// archive that cannot be set up is logged and left out.
func Build(cfg *config.Config) (*Components, error) {
	for _, dir := range []string{cfg.DataDir, cfg.UploadDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	st := store.New(cfg.DataDir)
	up := uploads.NewStore(cfg.UploadDir)
	renderer := pdf.NewRenderer(pdf.Config{
		LogoPath:      cfg.LogoPath,
		BrandLogoPath: cfg.BrandLogoPath,
		ImageResolver: up.Resolve,
	})

	mailer := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
	})
	opts := []quotes.Option{quotes.WithMailer(mailer)}

	archived := false
	if cfg.ArchiveEnabled() {
		bucket, err := r2.Open(context.Background(), r2.Credentials{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			Bucket:          cfg.R2Bucket,
		})
		if err != nil {
			slog.Error("R2 archive disabled", "error", err)
		} else {
			opts = append(opts, quotes.WithArchiver(r2.NewArchive(bucket)))
			archived = true
		}
	}

	svc := quotes.NewService(st, store.NewCounter(cfg.DataDir), formdecode.New(up), renderer, opts...)

	return &Components{
		Quotes:   svc,
		Store:    st,
		Uploads:  up,
		Archived: archived,
	}, nil
}
