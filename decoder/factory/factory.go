// Package factory dispatches raw Solana account bytes to the correct
// concrete DEX decoder, by explicit type label or by auto-detection.
// It lives apart from package decoder itself so the concrete decoders
// (which import decoder for the shared error taxonomy) don't create an
// import cycle with the dispatcher that imports all of them.
package factory

import (
	"strconv"
	"strings"

	"github.com/solarb/arb-detector-go/decoder"
	"github.com/solarb/arb-detector-go/decoder/clmm"
	"github.com/solarb/arb-detector-go/decoder/dlmm"
	"github.com/solarb/arb-detector-go/decoder/pmm"
	"github.com/solarb/arb-detector-go/decoder/raydiumv4"
	"github.com/solarb/arb-detector-go/decoder/stableswap"
	"github.com/solarb/arb-detector-go/decoder/vaultmode"
)

// canonical dex-type labels, one per contract-table row. Aliases below
// all resolve to one of these before a concrete decoder is chosen.
const (
	typeRaydiumV4   = "raydium_v4"
	typeCLMM        = "clmm"
	typeDLMM        = "meteora_dlmm"
	typePMM         = "lifinity_v2"
	typeStableSwap  = "stabble"
	typeVaultMode   = "vault_mode"
)

// aliasTable maps every case-insensitive DEX name and marketing alias
// the pool factory accepts to its canonical contract-table row. Several
// DEX names share one behavioral contract verbatim, matching the Rust
// pool_factory.rs alias list.
var aliasTable = map[string]string{
	"raydium":     typeRaydiumV4,
	"raydium_v4":  typeRaydiumV4,
	"raydium_amm": typeRaydiumV4,
	"raydiumv4":   typeRaydiumV4,
	"amm_v4":      typeRaydiumV4,
	"ammv4":       typeRaydiumV4,

	"clmm":            typeCLMM,
	"raydiumclmm":     typeCLMM,
	"orcawhirlpool":   typeCLMM,
	"raydium_clmm":    typeCLMM,
	"raydium_clmm_v2": typeCLMM,
	"orca":            typeCLMM,
	"orca_whirlpool":  typeCLMM,
	"whirlpool":       typeCLMM,

	"meteora":      typeDLMM,
	"meteora_dlmm": typeDLMM,
	"dlmm":         typeDLMM,

	"lifinity":    typePMM,
	"lifinity_v2": typePMM,
	"lifinityv2":  typePMM,

	"stabble":      typeStableSwap,
	"stabble_swap": typeStableSwap,
	"stabbleswap":  typeStableSwap,
	"stable_swap":  typeStableSwap,
	"stableswap":   typeStableSwap,

	"alphaq":      typeVaultMode,
	"solfi":       typeVaultMode,
	"solfi_v2":    typeVaultMode,
	"humidifi":    typeVaultMode,
	"goonfi":      typeVaultMode,
	"tesserav":    typeVaultMode,
	"aquifer":     typeVaultMode,
	"pancakeswap": typeVaultMode,

	"alpha_q": typeVaultMode, "solfiv2": typeVaultMode, "humidi_fi": typeVaultMode, "humid": typeVaultMode,
	"goon_fi": typeVaultMode, "goon": typeVaultMode, "tessera_v": typeVaultMode, "tessera": typeVaultMode,
	"aqui_fer": typeVaultMode, "aqui": typeVaultMode, "pancake_swap": typeVaultMode, "pancake": typeVaultMode, "pcs": typeVaultMode,
}

// CanonicalType resolves a DEX label (as configured or as reported by
// the subscription source) to its contract-table row, case-insensitive.
func CanonicalType(label string) (string, bool) {
	canon, ok := aliasTable[strings.ToLower(label)]
	return canon, ok
}

// VaultLayouts supplies the account layout for each vault-mode DEX
// alias, since unlike the other rows, vault-mode pools don't share a
// single fixed byte layout across DEXs.
type VaultLayouts map[string]vaultmode.Layout

// PoolFactory dispatches raw account bytes to the correct concrete
// decoder, either by explicit dex-type label or by auto-detection.
type PoolFactory struct {
	vaultLayouts VaultLayouts
}

// NewPoolFactory builds a factory using the supplied vault-mode
// layouts. Pass nil to use an empty layout set (vault-mode decode
// attempts will then always fail with UnknownPoolType).
func NewPoolFactory(layouts VaultLayouts) *PoolFactory {
	if layouts == nil {
		layouts = VaultLayouts{}
	}
	return &PoolFactory{vaultLayouts: layouts}
}

// Create dispatches by explicit dex-type label (case-insensitive,
// alias-resolved).
func (f *PoolFactory) Create(label, pair string, data []byte) (decoder.DexPool, error) {
	canon, ok := CanonicalType(label)
	if !ok {
		return nil, decoder.NewUnknownPoolType(label)
	}

	switch canon {
	case typeRaydiumV4:
		return raydiumv4.FromAccountData(label, pair, 25, data)
	case typeCLMM:
		return clmm.FromAccountData(label, pair, data)
	case typeDLMM:
		return dlmm.FromAccountData(label, pair, data)
	case typePMM:
		return pmm.FromAccountData(label, pair, 9, 6, pmm.DefaultPlausibleRange, data)
	case typeStableSwap:
		return stableswap.FromAccountData(label, pair, data)
	case typeVaultMode:
		layout, ok := f.vaultLayouts[strings.ToLower(label)]
		if !ok {
			return nil, decoder.NewUnknownPoolType(label)
		}
		return vaultmode.FromAccountData(label, pair, layout, data)
	default:
		return nil, decoder.NewUnknownPoolType(label)
	}
}

// CreateAutoDetect infers the dex type purely from blob length, trying
// the contract table's rows in the order their byte-length windows are
// least likely to collide: the fixed-width CLMM window first, then the
// fixed-width Raydium AMM V4 length, then a fallback CLMM attempt for
// any remaining blob inside the window, then Lifinity V2's variable
// candidate-offset scan. Anything else reports InvalidData with the
// blob's length for diagnostics.
func (f *PoolFactory) CreateAutoDetect(pair string, data []byte) (decoder.DexPool, error) {
	n := len(data)

	if n >= clmm.MinAccountLen && n <= clmm.MaxAccountLen {
		if p, err := clmm.FromAccountData("clmm", pair, data); err == nil {
			return p, nil
		}
	}

	if n == raydiumv4.AccountLen {
		if p, err := raydiumv4.FromAccountData("raydium_v4", pair, 25, data); err == nil {
			return p, nil
		}
	}

	if n >= clmm.MinAccountLen && n <= clmm.MaxAccountLen {
		if p, err := clmm.FromAccountData("clmm", pair, data); err == nil {
			return p, nil
		}
	}

	if p, err := pmm.FromAccountData("lifinity_v2", pair, 9, 6, pmm.DefaultPlausibleRange, data); err == nil {
		return p, nil
	}

	return nil, decoder.NewInvalidData(invalidDataLenMessage(n))
}

func invalidDataLenMessage(n int) string {
	return "no decoder recognized account length " + strconv.Itoa(n)
}
