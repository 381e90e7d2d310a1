package domain

// ExtractionMethod records how a token was found in a message.
type ExtractionMethod string

const (
	MethodPattern ExtractionMethod = "PATTERN" // direct pattern match in text
	MethodLookup  ExtractionMethod = "LOOKUP"  // external lookup fallback
)

// String returns the string representation of ExtractionMethod.
func (m ExtractionMethod) String() string {
	return string(m)
}

// ExtractedToken is one confirmed token address attributed to a message.
type ExtractedToken struct {
	Address string
	Method  ExtractionMethod
}

// ExtractionResult holds zero or more confirmed tokens for one message.
// Every address in Tokens has passed containment in the live index.
type ExtractionResult struct {
	Tokens []ExtractedToken
}

// Empty reports whether no token was confirmed.
func (r ExtractionResult) Empty() bool {
	return len(r.Tokens) == 0
}
