// Resolves outbound links (typically shorteners) to their final destination by following redirects, without fetching page bodies.
package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/shadowcheck/shadowcheck/cachestore"
)

const cacheName = "link-resolution"

var ErrTooManyRedirects = errors.New("too many redirects")

type Resolution struct {
	URL      string `json:"url"`
	FinalURL string `json:"finalUrl"`
	// every URL visited after the first, in order
	Hops       []string `json:"hops"`
	StatusCode int      `json:"statusCode"`
}

// Redirected is true if the final URL differs from the original.
func (r *Resolution) Redirected() bool {
	return len(r.Hops) > 0
}

type Options struct {
	// permits dialing loopback and private addresses, and non-standard ports (tests only)
	AllowPrivate bool
	// outbound requests per second, across all resolutions (0 means unlimited)
	RateLimit float64
	MaxHops   int
	Retries   int
	Timeout   time.Duration
	UserAgent string
	Cache     cachestore.CacheStore
	Logger    *slog.Logger
}

type Resolver struct {
	Client    *http.Client
	Cache     cachestore.CacheStore
	Limiter   *rate.Limiter
	MaxHops   int
	UserAgent string
	Logger    *slog.Logger
}

type leveledSlog struct {
	inner *slog.Logger
}

// retries are expected, so client errors are logged at warn
func (l leveledSlog) Error(msg string, keysAndValues ...any) { l.inner.Warn(msg, keysAndValues...) }
func (l leveledSlog) Warn(msg string, keysAndValues ...any)  { l.inner.Warn(msg, keysAndValues...) }
func (l leveledSlog) Info(msg string, keysAndValues ...any)  { l.inner.Info(msg, keysAndValues...) }
func (l leveledSlog) Debug(msg string, keysAndValues ...any) { l.inner.Debug(msg, keysAndValues...) }

func NewResolver(opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("subsystem", "linkcheck")
	if opts.MaxHops <= 0 {
		opts.MaxHops = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "shadowcheck-linkcheck"
	}

	var transport http.RoundTripper
	if opts.AllowPrivate {
		transport = cleanhttp.DefaultPooledTransport()
	} else {
		transport = publicOnlyTransport()
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient.Transport = otelhttp.NewTransport(transport)
	rc.RetryMax = opts.Retries
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = retryablehttp.LeveledLogger(leveledSlog{inner: logger})
	rc.CheckRetry = retryPolicy

	client := rc.StandardClient()
	client.Timeout = opts.Timeout
	// redirects are followed by hand, one hop at a time
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(1, int(opts.RateLimit)))
	}

	return &Resolver{
		Client:    client,
		Cache:     opts.Cache,
		Limiter:   limiter,
		MaxHops:   opts.MaxHops,
		UserAgent: opts.UserAgent,
		Logger:    logger,
	}
}

// Like the retryablehttp default, but 429s are not retried: the remote is telling us to back off.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// Follows redirects from rawURL. Successful resolutions are cached.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (*Resolution, error) {
	start, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing link: %w", err)
	}
	if start.Scheme == "" {
		start, err = url.Parse("https://" + rawURL)
		if err != nil {
			return nil, fmt.Errorf("parsing link: %w", err)
		}
	}
	if start.Scheme != "http" && start.Scheme != "https" {
		return nil, fmt.Errorf("unsupported link scheme: %s", start.Scheme)
	}

	key := start.String()
	if r.Cache != nil {
		var cached Resolution
		ok, err := cachestore.GetJSON(ctx, r.Cache, cacheName, key, &cached)
		if err != nil {
			r.Logger.Warn("link resolution cache read failed", "url", key, "err", err)
		} else if ok {
			resolveCount.WithLabelValues("cached").Inc()
			return &cached, nil
		}
	}

	res := &Resolution{URL: key, Hops: []string{}}
	cur := start
	for hop := 0; ; hop++ {
		if hop > r.MaxHops {
			resolveCount.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("%w resolving %s", ErrTooManyRedirects, key)
		}
		if err := r.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
		status, next, err := r.step(ctx, cur)
		if err != nil {
			resolveCount.WithLabelValues("error").Inc()
			return nil, err
		}
		res.StatusCode = status
		if next == nil {
			break
		}
		cur = next
		res.Hops = append(res.Hops, cur.String())
	}
	res.FinalURL = cur.String()
	resolveCount.WithLabelValues("resolved").Inc()

	if r.Cache != nil {
		if err := cachestore.SetJSON(ctx, r.Cache, cacheName, key, res); err != nil {
			r.Logger.Warn("link resolution cache write failed", "url", key, "err", err)
		}
	}
	return res, nil
}

// Makes one request. Returns the next URL if the response was a redirect.
func (r *Resolver) step(ctx context.Context, u *url.URL) (int, *url.URL, error) {
	resp, err := r.do(ctx, http.MethodHead, u)
	if err != nil {
		return 0, nil, err
	}
	// some shorteners don't implement HEAD
	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		resp, err = r.do(ctx, http.MethodGet, u)
		if err != nil {
			return 0, nil, err
		}
	}

	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther, http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		loc := resp.Header.Get("Location")
		if loc == "" {
			return resp.StatusCode, nil, nil
		}
		next, err := u.Parse(loc)
		if err != nil {
			return 0, nil, fmt.Errorf("bad redirect location %q: %w", loc, err)
		}
		if next.Scheme != "http" && next.Scheme != "https" {
			return 0, nil, fmt.Errorf("redirect to unsupported scheme: %s", next.Scheme)
		}
		return resp.StatusCode, next, nil
	}
	return resp.StatusCode, nil, nil
}

func (r *Resolver) do(ctx context.Context, method string, u *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.UserAgent)
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u.Host, err)
	}
	resp.Body.Close()
	return resp, nil
}
