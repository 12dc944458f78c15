package section

import "github.com/eslsoft/vidya/internal/entity"

// State is the section the scanner is currently filling.
type State int

const (
	StateScript State = iota
	StateRomanized
	StateGloss
	StateTranslation
	StateCommentary
)

// States lists every state in the order sections appear in a verse.
var States = []State{StateScript, StateRomanized, StateGloss, StateTranslation, StateCommentary}

func (s State) String() string {
	switch s {
	case StateScript:
		return "SCRIPT"
	case StateRomanized:
		return "ROMANIZED"
	case StateGloss:
		return "GLOSS"
	case StateTranslation:
		return "TRANSLATION"
	case StateCommentary:
		return "COMMENTARY"
	default:
		return "UNKNOWN"
	}
}

// Field is the verse field the state writes to.
func (s State) Field() entity.Field {
	switch s {
	case StateScript:
		return entity.FieldScript
	case StateRomanized:
		return entity.FieldRomanized
	case StateGloss:
		return entity.FieldGloss
	case StateTranslation:
		return entity.FieldTranslation
	case StateCommentary:
		return entity.FieldCommentary
	default:
		return entity.FieldUnspecified
	}
}
