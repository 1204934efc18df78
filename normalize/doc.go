// Package normalize turns inbound form submissions into canonical contact
// records.
//
// Submissions are decoded once into an ordered Fields list whose values are
// either a Scalar or a Composite. Everything after decoding works on that
// model: the Unwrapper swaps in the serialized document carried under the
// carrier key, Resolve performs the loose key search, and Builder applies the
// declared lookup table that produces a core.CanonicalRecord. Key order is
// the order in which keys appeared in the payload and is the only tie
// breaker used by the search.
package normalize
