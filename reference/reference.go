// Package reference generates transaction reference strings for correlating
// gateway requests. References are time-ordered but not guaranteed unique;
// the gateway deduplicates on its side, and callers with stricter needs can
// supply their own references.
package reference

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// DefaultPrefix is used when New is called without an explicit prefix.
const DefaultPrefix = "REF"

// New returns a reference of the form {prefix}{unixMillis}{random 0..999}.
func New(prefix ...string) string {
	p := DefaultPrefix
	if len(prefix) > 0 && prefix[0] != "" {
		p = prefix[0]
	}
	return fmt.Sprintf("%s%d%d", p, time.Now().UnixMilli(), rand.IntN(1000))
}
