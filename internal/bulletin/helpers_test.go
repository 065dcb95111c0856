package bulletin

import "strings"

func parseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}
