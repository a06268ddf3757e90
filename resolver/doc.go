// Package resolver turns URIs into wrappers.
//
// A Resolver answers a single hop: it either ignores a URI, points at another
// URI, or produces a wrapper or package. A Chain orders resolvers into tiers
// and walks hops until a wrapper appears, nothing matches, or MaxRedirects
// URI-to-URI hops have been taken.
//
// Tier order:
//
//	TierRedirect    explicit redirect rules
//	TierBinding     URI-bound wrappers and packages in registration order
//	TierResolver    user resolvers in registration order
//	TierStatic      the static table
//	TierExtendable  the runtime-extendable table
//
// Packages are turned into wrappers each time they are reached, so a
// bytecode package is loaded once per resolution.
package resolver
