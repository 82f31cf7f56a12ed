package metrics

// Metrics holds oracle usage for a time period.
type Metrics struct {
	oracleRequests int
	tokens         int
	cacheHits      int
}

// New creates a Metrics snapshot.
func New(requests, tokens, cacheHits int) Metrics {
	return Metrics{oracleRequests: requests, tokens: tokens, cacheHits: cacheHits}
}

// OracleRequests returns the number of oracle calls that reached the provider.
func (m Metrics) OracleRequests() int { return m.oracleRequests }

// Tokens returns the total tokens consumed.
func (m Metrics) Tokens() int { return m.tokens }

// CacheHits returns completions served from the memoization layer.
func (m Metrics) CacheHits() int { return m.cacheHits }
