package prompt

// Mode describes how much weight the prompt gives to organizational context.
type Mode string

const (
	// ModeAuthoritative means significant organizational context is present
	// and must override general knowledge
	ModeAuthoritative Mode = "authoritative"

	// ModeFallback means no significant context is available and the model
	// may rely on general reasoning
	ModeFallback Mode = "fallback"
)

// SignificantContextLen is the minimum context length, in bytes, for the
// context to be treated as authoritative.
const SignificantContextLen = 50

// Bundle is an immutable pair of system and human prompts plus metadata
// about the context mode it was built under.
type Bundle struct {
	// System defines model behavior and output format
	System string

	// Human carries the context, question and instructions
	Human string

	// Significant reports whether authoritative context was present
	Significant bool

	// Mode is ModeAuthoritative or ModeFallback
	Mode Mode
}

// Significant reports whether the context block is long enough to be
// treated as authoritative.
func Significant(contextBlock string) bool {
	return len(contextBlock) >= SignificantContextLen
}

// ModeFor returns the operating mode for the given context block.
func ModeFor(contextBlock string) Mode {
	if Significant(contextBlock) {
		return ModeAuthoritative
	}
	return ModeFallback
}
