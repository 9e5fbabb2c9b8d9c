// Package service validates raw collaborator input and translates it
// into matching engine calls and store queries.
package service

import (
	"github.com/efreitasn/matchcore/internal/domain"
	"github.com/efreitasn/matchcore/internal/engine"
)

// resolveMarket parses a pair and checks the engine has a market for it.
func resolveMarket(e *engine.MatchingEngine, pairSlug string) (domain.TradingPair, error) {
	pair, err := domain.ParseTradingPair(pairSlug)
	if err != nil {
		return domain.TradingPair{}, err
	}
	if _, err := e.Market(pair); err != nil {
		return domain.TradingPair{}, err
	}
	return pair, nil
}
