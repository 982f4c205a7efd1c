package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/buildgridgo/internal/filestore"
	"github.com/specialistvlad/buildgridgo/internal/fingerprint"
	"github.com/specialistvlad/buildgridgo/internal/inmemoryfingerprints"
	"github.com/specialistvlad/buildgridgo/internal/sqlstore"
)

// openStore opens the fingerprint store selected by the configuration.
func openStore(ctx context.Context, cfg *Config) (fingerprint.Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		return inmemoryfingerprints.New(), nil
	case "file":
		s, err := filestore.New(cfg.StorePath())
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := sqlstore.OpenSQLite(ctx, cfg.StorePath())
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := sqlstore.OpenPostgres(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
