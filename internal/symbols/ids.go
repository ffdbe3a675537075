package symbols

type (
	SymbolID uint32
	ScopeID  uint32
)

const (
	NoSymbolID SymbolID = 0
	NoScopeID  ScopeID  = 0
)

func (id SymbolID) IsValid() bool { return id != NoSymbolID }
func (id ScopeID) IsValid() bool  { return id != NoScopeID }
