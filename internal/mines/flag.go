package mines

// FlagState is the per-cell marking cycle. The zero value is FlagNone.
type FlagState int8

const (
	FlagNone FlagState = iota
	Flagged
	Questioned
)

// Next advances the marking cycle None -> Flagged -> Questioned -> None.
func (f FlagState) Next() FlagState {
	switch f {
	case FlagNone:
		return Flagged
	case Flagged:
		return Questioned
	default:
		return FlagNone
	}
}

func (f FlagState) String() string {
	switch f {
	case Flagged:
		return "flagged"
	case Questioned:
		return "questioned"
	default:
		return "none"
	}
}
