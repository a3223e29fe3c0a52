package networkdefinition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starknet_portfolio/internal/pkg/logger"
)

func TestGetNetworkDefinitionByName(t *testing.T) {
	p := NewNetworkDefinitionProvider(logger.NewNop())

	for _, name := range []string{"mainnet", "MAINNET", "Starknet Mainnet", "SN_MAIN"} {
		def, ok := p.GetNetworkDefinitionByName(name)
		require.True(t, ok, name)
		assert.Equal(t, "SN_MAIN", def.ChainID)
	}

	_, ok := p.GetNetworkDefinitionByName("ethereum")
	assert.False(t, ok)

	all := p.GetAllNetworkDefinitions()
	require.Len(t, all, 2)
	assert.Equal(t, Mainnet.Identifier, all[0].Identifier)
}

func TestResolve_OverridesRPC(t *testing.T) {
	p := NewNetworkDefinitionProvider(logger.NewNop())

	def, err := p.Resolve("sepolia", []string{" http://a ", "", "http://b"})
	require.NoError(t, err)
	assert.Equal(t, "http://a", def.PrimaryRPCURL)
	assert.Equal(t, []string{"http://b"}, def.FallbackRPCURLs)
	assert.Equal(t, "https://starknet-sepolia.public.blastapi.io/rpc/v0_7", Sepolia.PrimaryRPCURL)

	def, err = p.Resolve("mainnet", nil)
	require.NoError(t, err)
	assert.Equal(t, Mainnet.PrimaryRPCURL, def.PrimaryRPCURL)

	_, err = p.Resolve("goerli", nil)
	assert.Error(t, err)
}
