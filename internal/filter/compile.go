package filter

import (
	"fmt"
	"strings"

	"github.com/vmsite/collector/internal/event"
)

// Compile converts a predicate into a SQL boolean expression over the
// events table and its positional parameters.
//
// A nil predicate compiles to "1 = 1". Values are never interpolated.
func Compile(p Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil
	}

	switch pred := p.(type) {
	case Since:
		return "ts >= ?", []any{pred.Unix}, nil
	case KindPrefix:
		return compileKindPrefix(pred)
	case KindIn:
		return compileKindIn(pred)
	case Equals:
		if !pred.Field.textual() {
			return "", nil, fmt.Errorf("equals: unsupported column %q", pred.Field)
		}
		return fmt.Sprintf("%s = ?", pred.Field), []any{pred.Value}, nil
	case Contains:
		if !pred.Field.textual() {
			return "", nil, fmt.Errorf("contains: unsupported column %q", pred.Field)
		}
		return fmt.Sprintf(`%s LIKE ? ESCAPE '\'`, pred.Field), []any{"%" + escapeLike(pred.Substr) + "%"}, nil
	case NotNull:
		if !pred.Field.Valid() {
			return "", nil, fmt.Errorf("not null: unknown column %q", pred.Field)
		}
		return fmt.Sprintf("%s IS NOT NULL", pred.Field), nil, nil
	case And:
		return compileJunction(pred.Predicates, " AND ", "1 = 1")
	case Or:
		return compileJunction(pred.Predicates, " OR ", "1 = 0")
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileKindPrefix emits a half-open range under NOCASE collation, so
// prefixes match ignoring ASCII case and the (event COLLATE NOCASE, ts)
// index is used.
func compileKindPrefix(p KindPrefix) (string, []any, error) {
	if p.Prefix == "" {
		return "1 = 1", nil, nil
	}
	lower := event.FoldASCII(p.Prefix)
	upper, ok := nocaseUpperBound(lower)
	if !ok {
		return "event COLLATE NOCASE >= ?", []any{lower}, nil
	}
	return "(event COLLATE NOCASE >= ? AND event COLLATE NOCASE < ?)", []any{lower, upper}, nil
}

func compileKindIn(p KindIn) (string, []any, error) {
	if len(p.Kinds) == 0 {
		return "1 = 0", nil, nil
	}
	placeholders := make([]string, len(p.Kinds))
	params := make([]any, len(p.Kinds))
	for i, k := range p.Kinds {
		placeholders[i] = "?"
		params[i] = k
	}
	return fmt.Sprintf("event IN (%s)", strings.Join(placeholders, ", ")), params, nil
}

func compileJunction(preds []Predicate, sep, empty string) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}
	parts := make([]string, 0, len(preds))
	var params []any
	for _, p := range preds {
		sql, ps, err := Compile(p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	if len(parts) == 1 {
		return parts[0], params, nil
	}
	return "(" + strings.Join(parts, sep) + ")", params, nil
}

// prefixUpperBound returns the smallest string greater than every string
// with the given prefix, comparing bytes. ok is false if none exists.
func prefixUpperBound(prefix string) (string, bool) {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1]), true
		}
	}
	return "", false
}

// nocaseUpperBound is prefixUpperBound for a lowercased prefix compared
// under NOCASE. A bound ending in an ASCII capital would itself be folded,
// so it is moved past 'Z'; no folded value has capitals in between.
func nocaseUpperBound(lower string) (string, bool) {
	upper, ok := prefixUpperBound(lower)
	if !ok {
		return "", false
	}
	if c := upper[len(upper)-1]; 'A' <= c && c <= 'Z' {
		upper = upper[:len(upper)-1] + "["
	}
	return upper, true
}

// escapeLike escapes LIKE metacharacters for use with ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
