package client

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wrap-client/config"
	"github.com/wippyai/wrap-client/errors"
	"github.com/wippyai/wrap-client/resolver"
	"github.com/wippyai/wrap-client/uri"
	"github.com/wippyai/wrap-client/wrap"
)

// Client resolves URIs against a frozen config and invokes the resulting
// wrappers. It is safe for concurrent use.
type Client struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics
}

var _ wrap.Invoker = (*Client)(nil)

// New creates a client. A nil cfg behaves like an empty config.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg == nil {
		cfg = config.NewBuilder().Build()
	}
	m, err := newMetrics(o.registry)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotInitialized, err, "register metrics")
	}
	return &Client{cfg: cfg, log: o.logger, metrics: m}, nil
}

// Config returns the frozen configuration.
func (c *Client) Config() *config.Config {
	return c.cfg
}

// Extendable returns the resolver that may still be mutated after construction.
func (c *Client) Extendable() *resolver.Extendable {
	return c.cfg.Extendable()
}

// Implementations returns the registered implementations of iface.
func (c *Client) Implementations(iface uri.URI) []uri.URI {
	return c.cfg.Implementations(iface)
}

// Resolve walks the resolver chain for u. A URI nothing matches yields a
// Resolution with Found false and a nil error.
func (c *Client) Resolve(ctx context.Context, u uri.URI) (resolver.Resolution, error) {
	res, err := c.cfg.Chain().Resolve(ctx, u)
	switch {
	case err != nil:
		c.metrics.resolved(resolveError)
		c.log.Debug("resolution failed", zap.Stringer("uri", u), zap.Error(err))
	case !res.Found():
		c.metrics.resolved(resolveNotFound)
		c.log.Debug("uri not found", zap.Stringer("uri", u))
	default:
		c.metrics.resolved(resolveFound)
		c.log.Debug("resolved",
			zap.Stringer("uri", u),
			zap.Stringer("final", res.URI),
			zap.Int("hops", len(res.History)),
			zap.String("kind", wrap.WrapperKind(res.Wrapper)))
	}
	return res, err
}

// LoadWrapper resolves u and returns its wrapper. An unmatched URI is an error.
func (c *Client) LoadWrapper(ctx context.Context, u uri.URI) (wrap.Wrapper, error) {
	res, err := c.Resolve(ctx, u)
	if err != nil {
		return nil, err
	}
	if !res.Found() {
		return nil, notFound(res)
	}
	return res.Wrapper, nil
}

// Invoke resolves u and calls method on the resulting wrapper. env, when
// non-nil, replaces any configured environment.
func (c *Client) Invoke(ctx context.Context, u uri.URI, method string, args []byte, env *wrap.Env) ([]byte, error) {
	start := time.Now()

	res, err := c.Resolve(ctx, u)
	if err != nil {
		c.metrics.invoked(outcomeResolveError, start)
		return nil, err
	}
	if !res.Found() {
		c.metrics.invoked(outcomeNotFound, start)
		return nil, notFound(res)
	}

	out, err := c.invoke(ctx, res.Wrapper, res.URI, method, args, c.effectiveEnv(res, env))
	if err != nil {
		c.metrics.invoked(outcomeInvokeError, start)
		return nil, invocationFailed(res, method, err)
	}
	c.metrics.invoked(outcomeOK, start)
	return out, nil
}

// InvokeWrapper calls method on an already resolved wrapper. The configured
// environment for u applies unless env is non-nil.
func (c *Client) InvokeWrapper(ctx context.Context, w wrap.Wrapper, u uri.URI, method string, args []byte, env *wrap.Env) ([]byte, error) {
	start := time.Now()
	res := resolver.Resolution{Requested: u, URI: u, Wrapper: w}

	out, err := c.invoke(ctx, w, u, method, args, c.effectiveEnv(res, env))
	if err != nil {
		c.metrics.invoked(outcomeInvokeError, start)
		return nil, invocationFailed(res, method, err)
	}
	c.metrics.invoked(outcomeOK, start)
	return out, nil
}

// InvokeRaw parses uriText and envText before invoking. An empty envText
// means no override.
func (c *Client) InvokeRaw(ctx context.Context, uriText, method string, args []byte, envText string) ([]byte, error) {
	u, err := uri.Parse(uriText)
	if err != nil {
		c.metrics.invoked(outcomeInvalidInput, time.Now())
		return nil, err
	}
	var env *wrap.Env
	if envText != "" {
		parsed, err := wrap.ParseEnv(envText)
		if err != nil {
			c.metrics.invoked(outcomeInvalidInput, time.Now())
			return nil, err
		}
		env = &parsed
	}
	return c.Invoke(ctx, u, method, args, env)
}

func (c *Client) invoke(ctx context.Context, w wrap.Wrapper, u uri.URI, method string, args []byte, env wrap.Env) ([]byte, error) {
	c.log.Debug("invoke",
		zap.Stringer("uri", u),
		zap.String("method", method),
		zap.Int("args", len(args)),
		zap.String("kind", wrap.WrapperKind(w)))
	return w.Invoke(ctx, wrap.Invocation{URI: u, Method: method, Args: args, Env: env}, c)
}

// effectiveEnv picks the override, then the env bound to the requested URI,
// then the env bound to the final URI. Intermediate hops are not consulted.
func (c *Client) effectiveEnv(res resolver.Resolution, override *wrap.Env) wrap.Env {
	if override != nil {
		return *override
	}
	if env, ok := c.cfg.Env(res.Requested); ok {
		return env
	}
	if env, ok := c.cfg.Env(res.URI); ok {
		return env
	}
	return wrap.Env{}
}

func notFound(res resolver.Resolution) *errors.Error {
	b := errors.New(errors.PhaseResolve, errors.KindNotFound).
		URI(res.Requested.String()).
		Detail("no resolver matched")
	if len(res.History) > 0 {
		b.Hops(uri.Strings(res.Path())...)
	}
	return b.Build()
}

func invocationFailed(res resolver.Resolution, method string, cause error) *errors.Error {
	b := errors.New(errors.PhaseInvoke, errors.KindInvocation).
		URI(res.URI.String()).
		Method(method).
		Cause(cause)
	if res.URI != res.Requested {
		b.Hops(uri.Strings(res.Path())...)
	}
	return b.Build()
}
