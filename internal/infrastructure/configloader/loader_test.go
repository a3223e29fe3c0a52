package configloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starknet_portfolio/internal/domain/entity"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"CONFIG_PATH", "STARKNET_RPC_URL", "DATABASE_DSN", "NATS_URL", "SERVER_PORT", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestParse_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse([]byte(`
starknet:
  rpcURLs: ["https://rpc.example"]
`))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "mainnet", cfg.Starknet.Network)
	assert.EqualValues(t, 10000, cfg.Starknet.RPCCallTimeoutMs)
	assert.Equal(t, "https://starknet.impulse.avnu.fi", cfg.PriceFeed.BaseURL)
	assert.Equal(t, "sql", cfg.Catalog.Source)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.NotEmpty(t, cfg.Database.DSN)
	assert.Equal(t, "sql", cfg.Database.PolicySource)
	assert.Equal(t, "@every 6h", cfg.Rebalance.Schedule)
	assert.Equal(t, 5.0, cfg.Rebalance.DefaultToleranceBand)
	assert.Equal(t, 10, cfg.Performance.MaxConcurrentRoutines)
	assert.Empty(t, cfg.NATS.URL)
}

func TestParse_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STARKNET_RPC_URL", "https://override.example")
	t.Setenv("DATABASE_DSN", "postgres://u:p@db/portfolio")
	t.Setenv("NATS_URL", "nats://broker:4222")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Parse([]byte(`
starknet:
  rpcURLs: ["https://rpc.example", "https://override.example"]
database:
  driver: postgres
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"https://override.example", "https://rpc.example"}, cfg.Starknet.RPCURLs)
	assert.Equal(t, "postgres://u:p@db/portfolio", cfg.Database.DSN)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestParse_Validation(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"no rpc":          `catalog: {source: file}`,
		"bad source":      "starknet: {rpcURLs: [x]}\ncatalog: {source: s3}",
		"bad driver":      "starknet: {rpcURLs: [x]}\ndatabase: {driver: mongo}",
		"postgres no dsn": "starknet: {rpcURLs: [x]}\ndatabase: {driver: postgres}",
		"policy file":     "starknet: {rpcURLs: [x]}\ndatabase: {policySource: file}",
		"policy source":   "starknet: {rpcURLs: [x]}\ndatabase: {policySource: redis}",
		"bad category":    "starknet: {rpcURLs: [x]}\nrebalance: {categories: {'0x1': bonds}}",
		"bad yaml":        "starknet: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_FilePolicySource(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse([]byte(`
starknet: {rpcURLs: [x]}
database:
  policySource: FILE
  policiesFile: data/policies.yaml
`))
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Database.PolicySource)
	assert.Equal(t, "data/policies.yaml", cfg.Database.PoliciesFile)
}

func TestCategories(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse([]byte(`
starknet: {rpcURLs: [x]}
rebalance:
  categories:
    "0x0053C91253BC9682C04929CA02ED00B3E423F6710D2EE7E0D5EBB06F3ECF368A8": stable
    "0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7": Native
`))
	require.NoError(t, err)

	categories, err := cfg.Categories()
	require.NoError(t, err)
	assert.Equal(t, entity.CategoryStable, categories["0x53c91253bc9682c04929ca02ed00b3e423f6710d2ee7e0d5ebb06f3ecf368a8"])
	assert.Equal(t, entity.CategoryNative, categories["0x49d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7"])
}

func TestLoad_FromConfigPath(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("starknet: {rpcURLs: [x]}\nserver: {port: ':7000'}\n"), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load("ignored.yml")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Port)

	t.Setenv("CONFIG_PATH", "")
	_, err = Load(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}
