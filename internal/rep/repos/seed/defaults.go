package seed

// defaultSeed is the built-in dataset used on first start when no database
// has been persisted and no seed file is configured. Timestamps are the
// curation date of this set, not record freshness guarantees.
const defaultSeed = `{
  "version": "seed-1.0.0",
  "records": [
    {"domain": "reuters.com", "score": 95, "category": "news", "bias": "center", "last_updated": 1735689600, "variants": ["reuters.co.uk"]},
    {"domain": "apnews.com", "score": 94, "category": "news", "bias": "center", "last_updated": 1735689600},
    {"domain": "bbc.co.uk", "score": 92, "category": "news", "bias": "center", "last_updated": 1735689600, "variants": ["bbc.com"]},
    {"domain": "npr.org", "score": 90, "category": "news", "bias": "center", "last_updated": 1735689600},
    {"domain": "theguardian.com", "score": 85, "category": "news", "bias": "left", "last_updated": 1735689600, "variants": ["guardian.co.uk"]},
    {"domain": "wsj.com", "score": 86, "category": "news", "bias": "right", "last_updated": 1735689600},
    {"domain": "nature.com", "score": 96, "category": "academic", "last_updated": 1735689600},
    {"domain": "arxiv.org", "score": 88, "category": "academic", "last_updated": 1735689600},
    {"domain": "wikipedia.org", "score": 80, "category": "academic", "last_updated": 1735689600, "variants": ["en.wikipedia.org"]},
    {"domain": "nih.gov", "score": 95, "category": "government", "last_updated": 1735689600},
    {"domain": "cdc.gov", "score": 94, "category": "government", "last_updated": 1735689600},
    {"domain": "who.int", "score": 93, "category": "government", "bias": "center", "last_updated": 1735689600},
    {"domain": "twitter.com", "score": 40, "category": "social", "bias": "mixed", "last_updated": 1735689600, "variants": ["x.com"]},
    {"domain": "facebook.com", "score": 38, "category": "social", "bias": "mixed", "last_updated": 1735689600},
    {"domain": "reddit.com", "score": 45, "category": "forum", "bias": "mixed", "last_updated": 1735689600},
    {"domain": "medium.com", "score": 55, "category": "blog", "bias": "mixed", "last_updated": 1735689600},
    {"domain": "amazon.com", "score": 60, "category": "commercial", "last_updated": 1735689600}
  ]
}`
