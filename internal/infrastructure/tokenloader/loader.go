package tokenloader

import (
	"context"
	"fmt"
	"os"

	"starknet_portfolio/internal/app/port"
	"starknet_portfolio/internal/domain/entity"
	"starknet_portfolio/internal/pkg/utils"
)

// DefaultAssetFilePath is used when no catalog file is configured.
const DefaultAssetFilePath = "data/assets.json"

// AssetSink receives catalog entries when seeding a store.
type AssetSink interface {
	UpsertAsset(ctx context.Context, r entity.AssetRecord) error
}

// AssetFileLoader serves the asset catalog from a JSON file. The file holds an
// array of entity.AssetRecord; derived assets reference their underlying
// assets by address. It implements port.AssetCatalog.
type AssetFileLoader struct {
	filePath string
	logger   port.Logger
}

// NewAssetFileLoader creates an AssetFileLoader.
func NewAssetFileLoader(filePath string, l port.Logger) *AssetFileLoader {
	if filePath == "" {
		filePath = DefaultAssetFilePath
	}
	return &AssetFileLoader{filePath: filePath, logger: l}
}

// Records reads the raw records from the file.
func (l *AssetFileLoader) Records() ([]entity.AssetRecord, error) {
	var records []entity.AssetRecord
	if err := utils.LoadJSONFile(l.filePath, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrCatalogLoadFailure, err)
	}
	return records, nil
}

// ListSupportedAssets re-reads the file on every call; put a cache in front of it.
func (l *AssetFileLoader) ListSupportedAssets(_ context.Context) ([]entity.SupportedAsset, error) {
	records, err := l.Records()
	if err != nil {
		return nil, err
	}
	assets, err := entity.ResolveCatalog(records)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("Loaded asset catalog from file", "path", l.filePath, "count", len(assets))
	return assets, nil
}

// SeedInto upserts every record of the file into sink, in file order.
// A missing file is not an error.
func (l *AssetFileLoader) SeedInto(ctx context.Context, sink AssetSink) (int, error) {
	if _, err := os.Stat(l.filePath); os.IsNotExist(err) {
		l.logger.Info("No asset seed file, skipping", "path", l.filePath)
		return 0, nil
	}
	records, err := l.Records()
	if err != nil {
		return 0, err
	}
	if _, err := entity.ResolveCatalog(records); err != nil {
		return 0, err
	}
	for i, r := range records {
		if err := sink.UpsertAsset(ctx, r); err != nil {
			return i, err
		}
	}
	l.logger.Info("Seeded asset catalog", "path", l.filePath, "count", len(records))
	return len(records), nil
}
