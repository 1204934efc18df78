package normalize

import "strings"

// Lookup is a search term plus an optional sub-key.
type Lookup struct {
	Term   string
	SubKey string
}

func L(term string) Lookup {
	return Lookup{Term: term}
}

func LSub(term string, subKey string) Lookup {
	return Lookup{Term: term, SubKey: subKey}
}

func (l Lookup) Resolve(fields Fields) string {
	return Resolve(fields, l.Term, l.SubKey)
}

func (l Lookup) String() string {
	if l.SubKey == "" {
		return l.Term
	}
	return l.Term + "[" + l.SubKey + "]"
}

// Resolve finds the first key, in definition order, whose lower-cased form
// contains term and returns its display string.
//
// With a subKey, keys that also contain the literal "[subKey]" are tried
// first. Failing that, the first key containing term is used: a Composite
// yields its subKey entry and a Scalar yields "". A miss resolves to "".
func Resolve(fields Fields, term string, subKey string) string {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return ""
	}
	subKey = strings.TrimSpace(subKey)

	if subKey != "" {
		marker := "[" + strings.ToLower(subKey) + "]"
		for _, field := range fields {
			key := strings.ToLower(field.Key)
			if strings.Contains(key, needle) && strings.Contains(key, marker) {
				return field.Value.Display()
			}
		}
	}

	for _, field := range fields {
		if !strings.Contains(strings.ToLower(field.Key), needle) {
			continue
		}
		if subKey == "" {
			return field.Value.Display()
		}
		child, ok := field.Value.Child(subKey)
		if !ok {
			return ""
		}
		return child.Display()
	}
	return ""
}

// FirstNonEmpty returns the first lookup that resolves to a non-blank value.
func FirstNonEmpty(fields Fields, lookups ...Lookup) string {
	for _, lookup := range lookups {
		if value := strings.TrimSpace(lookup.Resolve(fields)); value != "" {
			return value
		}
	}
	return ""
}
