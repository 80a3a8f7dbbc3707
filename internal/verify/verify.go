// Package verify performs online existence checks for extracted citations
// against the case-law database. Checks are cache-first, HEAD-only, carry a
// short per-call timeout, and are guarded by a circuit breaker so a failing
// endpoint degrades the pipeline to pattern-only validation instead of being
// hammered.
package verify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jgowrie/advocate/internal/citation"
	"github.com/jgowrie/advocate/internal/schema"
	"github.com/jgowrie/advocate/internal/vcache"
)

// DefaultTimeout bounds a single existence check.
const DefaultTimeout = 3 * time.Second

// DefaultConcurrency bounds parallel lookups in VerifyAll.
const DefaultConcurrency = 4

// Verifier checks citations against the lookup endpoint. Construct with New;
// the cache and breaker are injected so tests can isolate instances.
type Verifier struct {
	base        string // lookup endpoint base URL, no trailing slash
	client      *http.Client
	cache       *vcache.Cache
	breaker     *Breaker
	timeout     time.Duration
	concurrency int
}

// Options configures a Verifier beyond its required collaborators.
type Options struct {
	Timeout     time.Duration
	Concurrency int
	// HTTPClient overrides the transport; nil uses http.DefaultClient.
	HTTPClient *http.Client
}

// New returns a Verifier for the given endpoint base URL.
func New(base string, cache *vcache.Cache, breaker *Breaker, opts Options) *Verifier {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &Verifier{
		base:        strings.TrimRight(base, "/"),
		client:      client,
		cache:       cache,
		breaker:     breaker,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
	}
}

// LookupURL constructs the deterministic lookup URL for an Australian
// citation: {base}/{jurisdiction}/{court}/{year}/{number}.html. The second
// return is false when the citation has no known jurisdiction and therefore
// no checkable URL.
func (v *Verifier) LookupURL(c schema.Citation) (string, bool) {
	if c.Jurisdiction == "" || c.Court == "" || c.Year == 0 || c.Number == "" {
		return "", false
	}
	court := strings.ReplaceAll(c.Court, " ", "")
	return fmt.Sprintf("%s/%s/%s/%d/%s.html", v.base, c.Jurisdiction, court, c.Year, c.Number), true
}

// Verify resolves one citation to a VerificationRecord, consulting the cache
// before any network call. The returned record has already been cached.
func (v *Verifier) Verify(ctx context.Context, c schema.Citation) schema.VerificationRecord {
	key := citation.Key(c)
	if rec, ok := v.cache.Get(key); ok {
		return rec
	}
	rec := v.resolve(ctx, key, c)
	// Transport failures are not cached: the endpoint may recover, and a
	// cached "unavailable" would outlive the outage.
	if !rec.Unavailable() {
		v.cache.Put(key, rec)
	}
	return rec
}

// RejectFromPattern records that the pattern stage already rejected c,
// making a network call unnecessary: the database cannot rehabilitate a
// future-dated or impossible citation. The record is cached so later passes
// over the same citation skip the lookup as well.
func (v *Verifier) RejectFromPattern(c schema.Citation) schema.VerificationRecord {
	key := citation.Key(c)
	if rec, ok := v.cache.Get(key); ok {
		return rec
	}
	rec := schema.VerificationRecord{
		Key: key, Verified: false, Reason: schema.ReasonPatternReject, CheckedAt: time.Now(),
	}
	v.cache.Put(key, rec)
	return rec
}

// resolve classifies and, where checkable, looks up the citation.
func (v *Verifier) resolve(ctx context.Context, key string, c schema.Citation) schema.VerificationRecord {
	now := time.Now()

	switch c.Kind {
	case schema.KindInternational:
		// Recognized foreign series: legitimate authority, but there is no
		// local index to confirm it against. Accepted without a network call.
		return schema.VerificationRecord{
			Key: key, Verified: true, Reason: schema.ReasonInternational, CheckedAt: now,
		}
	case schema.KindMediumNeutral, schema.KindTraditional:
		// checkable below
	default:
		return schema.VerificationRecord{
			Key: key, Verified: false, Reason: schema.ReasonUnrecognized, CheckedAt: now,
		}
	}

	url, ok := v.LookupURL(c)
	if !ok {
		return schema.VerificationRecord{
			Key: key, Verified: false, Reason: schema.ReasonUnrecognized, CheckedAt: now,
		}
	}

	if !v.breaker.Allow() {
		return schema.VerificationRecord{
			Key: key, Verified: false, Reason: schema.ReasonBreakerOpen, CheckedAt: now,
		}
	}

	exists, err := v.headCheck(ctx, url)
	if err != nil {
		v.breaker.RecordFailure()
		return schema.VerificationRecord{
			Key: key, Verified: false, Reason: schema.ReasonUnavailable, CheckedAt: now,
		}
	}
	v.breaker.RecordSuccess()

	if !exists {
		return schema.VerificationRecord{
			Key: key, Verified: false, Reason: schema.ReasonNotFound, CheckedAt: now,
		}
	}
	return schema.VerificationRecord{
		Key: key, Verified: true, Reason: schema.ReasonFound, URL: url, CheckedAt: now,
	}
}

// headCheck issues a HEAD request and reports whether the resource exists.
// 2xx → exists; 4xx → confirmed absent; anything else is a transport error.
// No retry here: retry policy lives in the orchestrator, which regenerates
// the whole passage rather than re-polling a dead link.
func (v *Verifier) headCheck(ctx context.Context, url string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, fmt.Errorf("verify: build request: %w", err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("verify: head %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return false, nil
	default:
		return false, fmt.Errorf("verify: head %s: unexpected status %d", url, resp.StatusCode)
	}
}

// VerifyAll verifies each citation with bounded concurrency. Results are
// positionally aligned with cites; ordering of the underlying lookups does
// not matter because each citation resolves by its own key.
func (v *Verifier) VerifyAll(ctx context.Context, cites []schema.Citation) []schema.VerificationRecord {
	recs := make([]schema.VerificationRecord, len(cites))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for i, c := range cites {
		g.Go(func() error {
			recs[i] = v.Verify(ctx, c)
			return nil
		})
	}
	// Workers never return errors; Verify folds failures into records.
	_ = g.Wait()
	return recs
}
