// Package domain contains the core value types of the reputation engine:
// persisted domain records, caller-facing reputations, database metadata,
// and the normalization rules that produce canonical store keys.
package domain

// Category classifies the kind of site a domain hosts.
type Category string

const (
	CategoryNews       Category = "news"
	CategoryBlog       Category = "blog"
	CategorySocial     Category = "social"
	CategoryAcademic   Category = "academic"
	CategoryGovernment Category = "government"
	CategoryCommercial Category = "commercial"
	CategoryForum      Category = "forum"
	CategoryUnknown    Category = "unknown"
)

// Bias describes the editorial orientation of a domain, when known.
type Bias string

const (
	BiasLeft   Bias = "left"
	BiasCenter Bias = "center"
	BiasRight  Bias = "right"
	BiasMixed  Bias = "mixed"
)

// Record is the compact persisted representation of one domain's
// credibility data. Domain holds the canonical key (lowercase, no "www."
// prefix). Variants are alias hostnames that resolve to this record.
//
// The validate tags are enforced by the update manager before a record is
// allowed into the store; invalid records are dropped, not fatal.
type Record struct {
	Domain      string   `json:"domain" validate:"required,hostname_rfc1123"`
	Score       int      `json:"score" validate:"gte=0,lte=100"`
	Category    Category `json:"category" validate:"required,oneof=news blog social academic government commercial forum unknown"`
	Bias        Bias     `json:"bias,omitempty" validate:"omitempty,oneof=left center right mixed"`
	LastUpdated int64    `json:"last_updated" validate:"gte=0"`
	Variants    []string `json:"variants,omitempty"`
}

// Newer reports whether r should replace existing during a merge.
// A merge only replaces when the incoming record is strictly newer.
func (r Record) Newer(existing Record) bool {
	return r.LastUpdated > existing.LastUpdated
}
