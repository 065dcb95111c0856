package filter

import (
	"slices"
	"strings"

	"github.com/vmsite/collector/internal/event"
)

// Match evaluates p against e with the same semantics as the compiled SQL.
// A nil predicate matches everything; unsupported columns never match.
func Match(p Predicate, e event.Event) bool {
	if p == nil {
		return true
	}

	switch pred := p.(type) {
	case Since:
		return e.Timestamp >= pred.Unix
	case KindPrefix:
		return strings.HasPrefix(event.FoldASCII(e.Kind), event.FoldASCII(pred.Prefix))
	case KindIn:
		return slices.Contains(pred.Kinds, e.Kind)
	case Equals:
		if !pred.Field.textual() {
			return false
		}
		v, ok := pred.Field.Of(e)
		return ok && v == pred.Value
	case Contains:
		if !pred.Field.textual() {
			return false
		}
		v, ok := pred.Field.Of(e)
		return ok && strings.Contains(event.FoldASCII(v), event.FoldASCII(pred.Substr))
	case NotNull:
		_, ok := pred.Field.Of(e)
		return pred.Field.Valid() && ok
	case And:
		for _, sub := range pred.Predicates {
			if !Match(sub, e) {
				return false
			}
		}
		return true
	case Or:
		for _, sub := range pred.Predicates {
			if Match(sub, e) {
				return true
			}
		}
		return false
	}
	return false
}
