// Package churn 的分析结果缓存：同一客户画像直接命中
package churn

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"churnsight/ml"
)

// ResultCache memoizes analysis results by record fingerprint. The
// pipeline is deterministic for a given artifact pair, so a hit is
// always valid until the artifacts are reloaded.
type ResultCache struct {
	inner *lru.Cache[string, *AnalysisResult]
}

// NewResultCache creates a bounded cache. size <= 0 picks a default.
func NewResultCache(size int) (*ResultCache, error) {
	if size <= 0 {
		size = 1024
	}
	inner, err := lru.New[string, *AnalysisResult](size)
	if err != nil {
		return nil, err
	}
	return &ResultCache{inner: inner}, nil
}

func (c *ResultCache) Get(record ml.CustomerRecord) (*AnalysisResult, bool) {
	return c.inner.Get(fingerprint(record))
}

func (c *ResultCache) Put(record ml.CustomerRecord, result *AnalysisResult) {
	c.inner.Add(fingerprint(record), result)
}

// Purge drops all entries. Called after an artifact reload.
func (c *ResultCache) Purge() {
	c.inner.Purge()
}

func (c *ResultCache) Len() int {
	return c.inner.Len()
}

func fingerprint(r ml.CustomerRecord) string {
	return fmt.Sprintf("%s|%t|%t|%t|%d|%t|%s|%.2f|%.2f",
		r.Gender, r.SeniorCitizen, r.Partner, r.Dependents,
		r.TenureMonths, r.PhoneService, r.InternetService,
		r.MonthlyCharges, r.TotalCharges)
}
