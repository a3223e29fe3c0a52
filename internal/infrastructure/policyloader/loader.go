package policyloader

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"starknet_portfolio/internal/app/port"
	"starknet_portfolio/internal/domain/entity"
)

// DefaultPolicyFilePath is used when no policy file is configured.
const DefaultPolicyFilePath = "data/policies.yaml"

// PolicySink receives policies when seeding a store.
type PolicySink interface {
	UpsertPolicy(ctx context.Context, p entity.AllocationPolicy) error
}

type policyFile struct {
	Policies []entity.AllocationPolicy `yaml:"policies"`
}

// PolicyFileLoader reads allocation policies from a YAML file. It implements
// port.PolicyStore for deployments without a database and seeds the SQL store
// otherwise.
type PolicyFileLoader struct {
	filePath string
	logger   port.Logger
}

// NewPolicyFileLoader creates a PolicyFileLoader.
func NewPolicyFileLoader(filePath string, l port.Logger) *PolicyFileLoader {
	if filePath == "" {
		filePath = DefaultPolicyFilePath
	}
	return &PolicyFileLoader{filePath: filePath, logger: l}
}

// ListPolicies reads the policy file. Entries failing allocation checks are
// skipped with a warning.
func (l *PolicyFileLoader) ListPolicies(_ context.Context) ([]entity.AllocationPolicy, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file %s: %w", l.filePath, err)
	}
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse policy file %s: %w", l.filePath, err)
	}

	out := make([]entity.AllocationPolicy, 0, len(f.Policies))
	for i, p := range f.Policies {
		p.WalletAddress = entity.NormalizeAddress(p.WalletAddress)
		if err := p.ValidateAllocation(); err != nil {
			l.logger.Warn("Skipping invalid policy", "file", l.filePath, "index", i, "wallet", p.WalletAddress, "error", err)
			continue
		}
		out = append(out, p)
	}
	l.logger.Debug("Policies loaded from file", "count", len(out), "path", l.filePath)
	return out, nil
}

// GetPolicy searches the file for walletAddress.
func (l *PolicyFileLoader) GetPolicy(ctx context.Context, walletAddress string) (entity.AllocationPolicy, error) {
	policies, err := l.ListPolicies(ctx)
	if err != nil {
		return entity.AllocationPolicy{}, err
	}
	want := entity.NormalizeAddress(walletAddress)
	for _, p := range policies {
		if strings.EqualFold(p.WalletAddress, want) {
			return p, nil
		}
	}
	return entity.AllocationPolicy{}, fmt.Errorf("%w: %s", entity.ErrPolicyNotFound, walletAddress)
}

// SeedInto upserts every valid policy into sink. A missing file is not an error.
func (l *PolicyFileLoader) SeedInto(ctx context.Context, sink PolicySink) (int, error) {
	if _, err := os.Stat(l.filePath); os.IsNotExist(err) {
		l.logger.Info("No policy seed file, skipping", "path", l.filePath)
		return 0, nil
	}
	policies, err := l.ListPolicies(ctx)
	if err != nil {
		return 0, err
	}
	for i, p := range policies {
		if err := sink.UpsertPolicy(ctx, p); err != nil {
			return i, err
		}
	}
	l.logger.Info("Seeded allocation policies", "path", l.filePath, "count", len(policies))
	return len(policies), nil
}
