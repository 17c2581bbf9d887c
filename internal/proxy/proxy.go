// Package proxy forwards /api requests to the pricing API, rewriting only
// scheme and host.
package proxy

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/guarzo/pkmpricedash/internal/logging"
)

const DefaultPrefix = "/api"

type Options struct {
	Upstream string
	Prefix   string

	// RateLimit is requests per second forwarded upstream. Zero means unlimited.
	RateLimit float64
	Burst     int

	Transport http.RoundTripper
}

type Proxy struct {
	prefix  string
	target  *url.URL
	rp      *httputil.ReverseProxy
	limiter *rate.Limiter
	log     *logging.Entry
}

func New(opts Options, log *logging.Log) (*Proxy, error) {
	target, err := url.Parse(opts.Upstream)
	if err != nil {
		return nil, fmt.Errorf("parse upstream: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("upstream %q must be http or https", opts.Upstream)
	}
	if target.Host == "" {
		return nil, fmt.Errorf("upstream %q has no host", opts.Upstream)
	}

	prefix := strings.TrimRight(opts.Prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if log == nil {
		log = logging.Discard()
	}

	p := &Proxy{
		prefix: prefix,
		target: target,
		log:    log.WithComponent("proxy"),
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	p.rp = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			// SetURL also clears Host so the upstream sees its own name.
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		Transport: opts.Transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			p.log.WithFields(logging.Fields{"path": r.URL.Path}).WithError(err).Warn("upstream request failed")
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
		},
	}
	return p, nil
}

// Prefix is the path prefix this proxy owns.
func (p *Proxy) Prefix() string {
	return p.prefix
}

// Matches reports whether path falls under the proxy prefix.
func (p *Proxy) Matches(path string) bool {
	return path == p.prefix || strings.HasPrefix(path, p.prefix+"/")
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !p.Matches(r.URL.Path) {
		http.NotFound(w, r)
		return
	}
	if p.limiter != nil && !p.limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	p.log.WithFields(logging.Fields{
		"method":   r.Method,
		"path":     r.URL.Path,
		"upstream": p.target.Host,
	}).Debug("forwarding")
	p.rp.ServeHTTP(w, r)
}
