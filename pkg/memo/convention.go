package memo

import "strings"

// Convention decides which method names are dispatched through the cache and
// which registered function backs them.
type Convention interface {
	Cacheable(method string) bool
	Underlying(method string) string
}

// PrefixConvention marks names starting with the prefix as cacheable and
// strips it to find the underlying function.
type PrefixConvention string

// DefaultConvention is the leading underscore rule.
const DefaultConvention = PrefixConvention("_")

func (p PrefixConvention) Cacheable(method string) bool {
	return strings.HasPrefix(method, string(p))
}

func (p PrefixConvention) Underlying(method string) string {
	return strings.TrimPrefix(method, string(p))
}
