package networkdefinition

import (
	"fmt"
	"strings"

	"starknet_portfolio/internal/app/port"
	"starknet_portfolio/internal/domain/entity"
)

// NetworkDefinitionProvider provides Starknet network definitions.
type NetworkDefinitionProvider struct {
	logger         port.Logger
	allNetworkDefs map[string]entity.NetworkDefinition
}

// Predefined network definitions
var ( //nolint:gochecknoglobals // Global for definitions
	Mainnet = entity.NetworkDefinition{
		Name:             "Starknet Mainnet",
		Identifier:       "mainnet",
		ChainID:          "SN_MAIN",
		PrimaryRPCURL:    "https://starknet-mainnet.public.blastapi.io/rpc/v0_7",
		FallbackRPCURLs:  []string{"https://free-rpc.nethermind.io/mainnet-juno/v0_7"},
		BlockExplorerURL: "https://starkscan.co",
	}
	Sepolia = entity.NetworkDefinition{
		Name:             "Starknet Sepolia",
		Identifier:       "sepolia",
		ChainID:          "SN_SEPOLIA",
		PrimaryRPCURL:    "https://starknet-sepolia.public.blastapi.io/rpc/v0_7",
		FallbackRPCURLs:  []string{"https://free-rpc.nethermind.io/sepolia-juno/v0_7"},
		BlockExplorerURL: "https://sepolia.starkscan.co",
	}
)

var allKnownDefinitions = map[string]entity.NetworkDefinition{
	Mainnet.Identifier: Mainnet,
	Sepolia.Identifier: Sepolia,
}

// NewNetworkDefinitionProvider creates a provider over the built-in networks.
func NewNetworkDefinitionProvider(log port.Logger) *NetworkDefinitionProvider {
	defs := make(map[string]entity.NetworkDefinition, len(allKnownDefinitions))
	for k, v := range allKnownDefinitions {
		defs[k] = v
	}
	return &NetworkDefinitionProvider{logger: log, allNetworkDefs: defs}
}

// GetAllNetworkDefinitions returns every known network, mainnet first.
func (p *NetworkDefinitionProvider) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	if p == nil {
		return []entity.NetworkDefinition{}
	}
	out := make([]entity.NetworkDefinition, 0, len(p.allNetworkDefs))
	for _, id := range []string{Mainnet.Identifier, Sepolia.Identifier} {
		if def, ok := p.allNetworkDefs[id]; ok {
			out = append(out, def)
		}
	}
	return out
}

// GetNetworkDefinitionByName looks a network up by identifier, name or chain id.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByName(nameOrIdentifier string) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	key := strings.ToLower(strings.TrimSpace(nameOrIdentifier))
	if def, ok := p.allNetworkDefs[key]; ok {
		return def, true
	}
	for _, def := range p.allNetworkDefs {
		if strings.EqualFold(def.Name, key) || strings.EqualFold(def.ChainID, key) {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}

// Resolve returns the named network with rpcURLs, when given, replacing its
// RPC endpoints. The first URL becomes primary and the rest fallbacks.
func (p *NetworkDefinitionProvider) Resolve(name string, rpcURLs []string) (entity.NetworkDefinition, error) {
	def, ok := p.GetNetworkDefinitionByName(name)
	if !ok {
		return entity.NetworkDefinition{}, fmt.Errorf("unknown starknet network %q", name)
	}
	var urls []string
	for _, u := range rpcURLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) > 0 {
		def.PrimaryRPCURL = urls[0]
		def.FallbackRPCURLs = append([]string(nil), urls[1:]...)
		p.logger.Debug("Using configured RPC endpoints", "network", def.Identifier, "primary", def.PrimaryRPCURL, "fallbacks", len(def.FallbackRPCURLs))
	}
	return def, nil
}
