// Package ident implements the deterministic mapping from logical names
// (streams, tuple indices, activities, windows, code text) to storage keys,
// and the qualified-name wrapping used for graph tokens.
// See docs/ARCHITECTURE § Identifier Codec.
package ident

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"

	"golang.org/x/crypto/pbkdf2"
)

// ErrParse reports a string that does not have the {namespace}local_part
// shape expected of a qualified name.
var ErrParse = errors.New("string is not a qualified name")

// Key-derivation parameters for content-hashed keys. Fixed so that
// identical content always derives the same key; the derivation is
// deterministic, not random.
const (
	keySalt       = "lineage.activity.v1"
	keyIterations = 1000
	keyLength     = 20 // 40 hex characters
)

// maxLocalPart is the longest local part stored verbatim. Longer names are
// replaced by their SHA-1 hex digest for storage; the mapping is stable and
// never reversible.
const maxLocalPart = 40

// EntityID returns the storage key for a stream tuple entity. With a
// non-negative index the key is positional ("{stream}._e{index}"); with
// a negative index the key identifies the stream itself ("e_{stream}").
func EntityID(stream string, index int) string {
	if index >= 0 {
		return fmt.Sprintf("%s._e%d", stream, index)
	}
	return "e_" + stream
}

// ActivityID derives the storage key for an activity from its operator
// name and optional argument. The key is PBKDF2-HMAC-SHA256 over the
// content with fixed parameters, hex encoded: identical (operator, arg)
// pairs always collide to the same activity node.
func ActivityID(operator, arg string) string {
	return deriveKey(operator + arg)
}

// CodeID derives the storage key for a stored code text, with the same
// content-hashed dedup guarantee as activities.
func CodeID(text string) string {
	return deriveKey(text)
}

// WindowID returns the storage key for a window collection node.
func WindowID(operator string, id int) string {
	return fmt.Sprintf("%s_w.w%d", operator, id)
}

func deriveKey(content string) string {
	key := pbkdf2.Key([]byte(content), []byte(keySalt), keyIterations, keyLength, sha256.New)
	return hex.EncodeToString(key)
}

// Codec wraps local parts into namespace-qualified names and parses them
// back. Codec methods are pure; a Codec is safe for concurrent use.
type Codec struct {
	namespace string
	localRe   *regexp.Regexp
}

// NewCodec returns a Codec for the given namespace.
func NewCodec(namespace string) *Codec {
	return &Codec{
		namespace: namespace,
		localRe:   regexp.MustCompile(`^\{` + regexp.QuoteMeta(namespace) + `\}(.+)$`),
	}
}

// Namespace returns the codec's namespace.
func (c *Codec) Namespace() string { return c.namespace }

// Qualify wraps a local part in the codec's namespace. A local part longer
// than 40 characters is replaced, for storage purposes only, by the hex
// SHA-1 digest of the original string; the original remains resolvable only
// through the caller that produced it.
func (c *Codec) Qualify(localPart string) string {
	if len(localPart) > maxLocalPart {
		sum := sha1.Sum([]byte(localPart))
		localPart = hex.EncodeToString(sum[:])
	}
	return "{" + c.namespace + "}" + localPart
}

// LocalPart extracts the local part of a qualified name produced by this
// codec. Returns ErrParse if the string is not of the {namespace}local
// shape.
func (c *Codec) LocalPart(qname string) (string, error) {
	m := c.localRe.FindStringSubmatch(qname)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrParse, qname)
	}
	return m[1], nil
}
