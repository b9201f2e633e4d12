// Package models implements C9: external-model credential resolution
// (spec.md §1 item 5, detailed in SPEC_FULL.md §4.9). It never talks to
// an upstream model API itself — that is the inference engine, out of
// scope — it only decides which credential and base URL a caller should
// use for a given alias or model id.
//
// Grounded on original_source/crates/routes_app/src/routes_api_models.rs's
// "api_key takes preference if both are provided" resolution order and
// its prefix-based alias routing.
package models

import (
	"context"
	"strings"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/credstore"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
)

// Resolver is C9's entry point over C2's alias rows.
type Resolver struct {
	repo credstore.Repository
}

// New builds a Resolver over repo.
func New(repo credstore.Repository) *Resolver {
	return &Resolver{repo: repo}
}

// ResolveApiKey implements resolve_api_key(alias_id, caller_supplied_key)
// (SPEC_FULL.md §4.9): a non-empty caller-supplied key always wins,
// letting a caller assert their own upstream credential without touching
// the stored one; otherwise the alias's stored key is used, and its
// absence is ApiKeyMissing.
func (r *Resolver) ResolveApiKey(ctx context.Context, aliasID, callerSuppliedKey string) (string, error) {
	if callerSuppliedKey != "" {
		return callerSuppliedKey, nil
	}
	key, ok, err := r.repo.GetApiKeyForAlias(ctx, aliasID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.New(domain.KindApiKeyMissing, "no api key supplied and alias has none stored: "+aliasID)
	}
	return key, nil
}

// RouteForModel implements route_for_model(model_id) (SPEC_FULL.md §4.9):
// the alias whose prefix is the longest matching prefix of modelID wins;
// failing that, the first unprefixed alias whose Models list names
// modelID verbatim.
func (r *Resolver) RouteForModel(ctx context.Context, modelID string) (domain.ApiModelAlias, error) {
	aliases, err := r.repo.ListApiModelAliases(ctx)
	if err != nil {
		return domain.ApiModelAlias{}, err
	}

	var best domain.ApiModelAlias
	bestLen := -1
	for _, a := range aliases {
		if a.Prefix == "" {
			continue
		}
		if strings.HasPrefix(modelID, a.Prefix) && len(a.Prefix) > bestLen {
			best, bestLen = a, len(a.Prefix)
		}
	}
	if bestLen >= 0 {
		return best, nil
	}

	for _, a := range aliases {
		if a.Prefix != "" {
			continue
		}
		for _, m := range a.Models {
			if m == modelID {
				return a, nil
			}
		}
	}

	return domain.ApiModelAlias{}, domain.New(domain.KindRowNotFound, "no alias routes model: "+modelID)
}
