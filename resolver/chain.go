package resolver

import (
	"context"
	"slices"

	"github.com/wippyai/wrap-client/errors"
	"github.com/wippyai/wrap-client/uri"
	"github.com/wippyai/wrap-client/wrap"
)

// MaxRedirects bounds URI-to-URI hops in a single resolution.
const MaxRedirects = 64

// Tier orders chain entries. Lower tiers are consulted first regardless of
// the order entries were added.
type Tier uint8

const (
	TierRedirect Tier = iota
	TierBinding
	TierResolver
	TierStatic
	TierExtendable
)

func (t Tier) String() string {
	switch t {
	case TierRedirect:
		return "redirect"
	case TierBinding:
		return "binding"
	case TierResolver:
		return "resolver"
	case TierStatic:
		return "static"
	case TierExtendable:
		return "extendable"
	default:
		return "unknown"
	}
}

// Entry is one element of a Chain.
type Entry struct {
	Like    Like
	Tier    Tier
	Channel Channel
}

// Step records one hop of a resolution.
type Step struct {
	URI     uri.URI
	Source  string
	Outcome string
	Tier    Tier
	Channel Channel
}

// Resolution is the outcome of walking a chain.
type Resolution struct {
	Wrapper   wrap.Wrapper
	Package   wrap.Package
	Requested uri.URI
	URI       uri.URI
	History   []Step
}

// Found reports whether the walk ended at a wrapper.
func (r Resolution) Found() bool {
	return r.Wrapper != nil
}

// Path returns the URIs visited, starting with the requested one.
func (r Resolution) Path() []uri.URI {
	path := make([]uri.URI, 0, len(r.History)+1)
	for _, s := range r.History {
		path = append(path, s.URI)
	}
	if n := len(r.History); n == 0 || r.History[n-1].Outcome == "uri" {
		path = append(path, r.URI)
	}
	return path
}

// Chain is an immutable ordered list of resolvers. A Chain is itself a
// Resolver, answering with the first entry that matches for a single hop.
type Chain struct {
	entries []Entry
}

// NewChain orders entries by tier, keeping insertion order within a tier.
func NewChain(entries ...Entry) *Chain {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b Entry) int {
		return int(a.Tier) - int(b.Tier)
	})
	return &Chain{entries: sorted}
}

// Entries returns a copy of the ordered entries.
func (c *Chain) Entries() []Entry {
	return slices.Clone(c.entries)
}

// Len returns the number of entries.
func (c *Chain) Len() int {
	return len(c.entries)
}

func (c *Chain) TryResolve(ctx context.Context, u uri.URI) (Result, error) {
	_, r, err := c.hop(ctx, u)
	return r, err
}

func (c *Chain) hop(ctx context.Context, u uri.URI) (Entry, Result, error) {
	for _, e := range c.entries {
		if e.Like == nil {
			continue
		}
		r, err := e.Like.TryResolve(ctx, u)
		if err != nil {
			return e, nil, err
		}
		if r != nil {
			return e, r, nil
		}
	}
	return Entry{}, nil, nil
}

// Resolve walks the chain from u until a wrapper is produced, no entry
// matches, or MaxRedirects is reached. A URI no entry matches yields a
// Resolution with Found false and a nil error.
func (c *Chain) Resolve(ctx context.Context, u uri.URI) (Resolution, error) {
	res := Resolution{Requested: u, URI: u}
	current := u
	hops := 0

	for {
		entry, result, err := c.hop(ctx, current)
		if err != nil {
			if _, ok := err.(*errors.Error); ok {
				return res, err
			}
			return res, errors.ResolverFailed(current.String(), err)
		}
		if result == nil {
			return res, nil
		}

		res.History = append(res.History, Step{
			URI:     current,
			Source:  Describe(entry.Like),
			Outcome: ResultKind(result),
			Tier:    entry.Tier,
			Channel: entry.Channel,
		})

		switch r := result.(type) {
		case URIResult:
			hops++
			current = r.URI
			res.URI = current
			if hops >= MaxRedirects {
				return res, errors.RedirectLoop(u.String(), MaxRedirects, uri.Strings(res.Path()))
			}
		case WrapperResult:
			if r.Wrapper == nil {
				return res, errors.ResolverFailed(current.String(), errors.InvalidInput(errors.PhaseResolve, "nil wrapper result"))
			}
			res.Wrapper = r.Wrapper
			return res, nil
		case PackageResult:
			if r.Package == nil {
				return res, errors.ResolverFailed(current.String(), errors.InvalidInput(errors.PhaseResolve, "nil package result"))
			}
			w, err := r.Package.CreateWrapper(ctx)
			if err != nil {
				return res, errors.PackageLoad(current.String(), err)
			}
			res.Package = r.Package
			res.Wrapper = w
			return res, nil
		default:
			return res, errors.ResolverFailed(current.String(), errors.InvalidInput(errors.PhaseResolve, "unknown result variant"))
		}
	}
}
