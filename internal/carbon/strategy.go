package carbon

import (
	"errors"
	"strings"

	"github.com/joseph-ayodele/ecoscore/internal/common"
)

// Strategy names how an estimate is obtained.
type Strategy string

const (
	StrategyLLM       Strategy = "llm"
	StrategySearch    Strategy = "search"
	StrategyLLMSearch Strategy = "llm_search"
	StrategyAuto      Strategy = "auto"
)

var errNoStrategy = errors.New("no estimation strategy available: configure a language model or a search provider")

// ParseStrategy reads a strategy name. The empty string means auto.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StrategyAuto, nil
	case StrategyLLM, StrategySearch, StrategyLLMSearch, StrategyAuto:
		return st, nil
	default:
		return "", common.ValidationErrorf("unknown strategy %q (want llm, search, llm_search or auto)", s)
	}
}

// Resolve turns auto into a concrete strategy based on which collaborators are
// configured. Explicit strategies pass through; a missing collaborator for them
// surfaces when the estimate runs.
func (s *Service) Resolve(requested Strategy) (Strategy, error) {
	if requested != StrategyAuto && requested != "" {
		return requested, nil
	}
	switch {
	case s.model != nil && s.searcher != nil:
		return StrategyLLMSearch, nil
	case s.model != nil:
		return StrategyLLM, nil
	case s.searcher != nil:
		return StrategySearch, nil
	default:
		return "", common.ProviderUnavailable("carbon", errNoStrategy)
	}
}
