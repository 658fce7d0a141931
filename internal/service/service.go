package service

import (
	"context"

	"github.com/stevelr/kv-assets/internal/config"
	"github.com/stevelr/kv-assets/internal/kv"
)

// Service wires the scanner, index builder, KV client, and journal into
// the sync/dump/watch operations the CLI exposes.
type Service struct {
	cfg         config.Config
	client      *kv.Client
	journalPath string
}

func New(ctx context.Context, cfg config.Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	token, err := cfg.Token()
	if err != nil {
		return nil, err
	}
	client := kv.NewClient(ctx, cfg.AccountID, cfg.NamespaceID, token)
	return newWithClient(cfg, client, defaultJournalPath()), nil
}

func newWithClient(cfg config.Config, client *kv.Client, journalPath string) *Service {
	return &Service{cfg: cfg, client: client, journalPath: journalPath}
}
