// Package heuristic scores domains that are absent from the record store.
// The scorer is a pure function over fixed pattern tables; rule order is
// part of the contract: trusted patterns win over untrusted keywords, and
// the TLD override only ever raises the floor afterwards.
package heuristic

import (
	"strings"

	"github.com/haukened/domrep/internal/rep/domain"
)

const (
	trustedScore   = 85
	untrustedScore = 25
	neutralScore   = 50
	tldFloorScore  = 80
)

// trustedPattern pairs a substring with the category it implies.
type trustedPattern struct {
	pattern  string
	category domain.Category
}

// trustedPatterns is matched first, in order. A domain matches when it
// contains the pattern or the pattern contains the domain.
var trustedPatterns = []trustedPattern{
	{"reuters.com", domain.CategoryNews},
	{"apnews.com", domain.CategoryNews},
	{"bbc.co", domain.CategoryNews},
	{"npr.org", domain.CategoryNews},
	{"afp.com", domain.CategoryNews},
	{"wikipedia.org", domain.CategoryAcademic},
	{"arxiv.org", domain.CategoryAcademic},
	{"pubmed", domain.CategoryAcademic},
	{"jstor.org", domain.CategoryAcademic},
	{"nature.com", domain.CategoryAcademic},
	{"who.int", domain.CategoryGovernment},
	{"europa.eu", domain.CategoryGovernment},
	{"un.org", domain.CategoryGovernment},
}

// untrustedKeywords is matched second; any substring hit scores low.
var untrustedKeywords = []string{
	"fake",
	"hoax",
	"conspiracy",
	"clickbait",
	"truthexposed",
	"wakeup",
}

// Result is the deterministic output of the fallback scorer.
type Result struct {
	Score    int
	Category domain.Category
	Bias     domain.Bias
}

// Score rates a canonical domain name. Evaluation order is fixed:
// trusted patterns, then untrusted keywords, then the neutral default,
// and finally the .gov/.edu override which only raises the score.
func Score(name string) Result {
	res := Result{Score: neutralScore, Category: domain.CategoryUnknown}

	if cat, ok := matchTrusted(name); ok {
		res = Result{Score: trustedScore, Category: cat, Bias: domain.BiasCenter}
	} else if matchUntrusted(name) {
		res = Result{Score: untrustedScore, Category: domain.CategoryBlog}
	}

	// TLD override: a floor, never an initial value and never a reduction.
	switch {
	case strings.HasSuffix(name, ".gov"):
		res.Score = max(res.Score, tldFloorScore)
		res.Category = domain.CategoryGovernment
	case strings.HasSuffix(name, ".edu"):
		res.Score = max(res.Score, tldFloorScore)
		res.Category = domain.CategoryAcademic
	}

	return res
}

// Record materializes the scorer output as a store-shaped record for the
// given canonical domain.
func Record(name string, updated int64) domain.Record {
	res := Score(name)
	return domain.Record{
		Domain:      name,
		Score:       res.Score,
		Category:    res.Category,
		Bias:        res.Bias,
		LastUpdated: updated,
	}
}

func matchTrusted(name string) (domain.Category, bool) {
	if name == "" {
		return "", false
	}
	for _, tp := range trustedPatterns {
		if strings.Contains(name, tp.pattern) || strings.Contains(tp.pattern, name) {
			return tp.category, true
		}
	}
	return "", false
}

func matchUntrusted(name string) bool {
	for _, kw := range untrustedKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}
