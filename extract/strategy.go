// Package extract turns a fetched page into canonical product fields using
// ordered fallback chains of extraction strategies.
package extract

import (
	"strings"

	"github.com/partdesk/ingest/fetch"
)

// Strategy is one way of pulling a field out of a page. Strategies in a
// chain are tried in priority order; once one result passes the acceptance
// predicate, later strategies are never consulted.
type Strategy interface {
	Name() string
	Extract(page *fetch.RawPage) string
}

// Accept decides whether a strategy result is usable.
type Accept func(string) bool

// runChain evaluates strategies lazily until one result is accepted.
func runChain(page *fetch.RawPage, strategies []Strategy, accept Accept) (string, string, bool) {
	for _, s := range strategies {
		value := strings.TrimSpace(s.Extract(page))
		if value == "" {
			continue
		}
		if accept == nil || accept(value) {
			return value, s.Name(), true
		}
	}
	return "", "", false
}

// boilerplate phrases that disqualify a candidate value: navigation and
// footer noise that selector chains occasionally land on.
var boilerplate = []string{
	"home",
	"homepage",
	"contact",
	"about us",
	"my account",
	"log in",
	"login",
	"register",
	"cart",
	"checkout",
	"shipping",
	"returns",
	"newsletter",
	"cookie",
	"cookies",
	"privacy policy",
	"terms",
	"all rights reserved",
	"menu",
	"search",
	"wishlist",
	"compare",
}

func isBoilerplate(value string) bool {
	lower := strings.ToLower(strings.TrimSpace(value))
	for _, phrase := range boilerplate {
		if lower == phrase || (len(lower) <= len(phrase)+4 && strings.Contains(lower, phrase)) {
			return true
		}
	}
	return false
}

// minLength builds the standard acceptance predicate.
func minLength(n int) Accept {
	return func(value string) bool {
		return len(strings.TrimSpace(value)) >= n && !isBoilerplate(value)
	}
}
