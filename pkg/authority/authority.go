package authority

// Token is a capability asserting exclusive write authority over the shared
// relation state. Orchestrator entry points require one; a token that is
// not held turns the call into a no-op, so no partial work can happen on a
// non-leader.
type Token struct {
	held bool
}

// Grant returns a held token.
func Grant() Token {
	return Token{held: true}
}

// None returns a token without authority.
func None() Token {
	return Token{}
}

func (t Token) Held() bool {
	return t.held
}

// Source supplies the current authority token per delivered signal.
// Leadership itself is decided outside this process.
type Source interface {
	Token() Token
}

// Static is a Source fixed at process start.
type Static bool

func (s Static) Token() Token {
	if s {
		return Grant()
	}
	return None()
}
