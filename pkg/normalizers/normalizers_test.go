package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnaccent(t *testing.T) {
	assert.Equal(t, "CORUNA", Unaccent("CORUÑA"))
	assert.Equal(t, "SAN PEDRO", Unaccent("SAN PEDRO"))
	assert.Equal(t, "IKURRINA", Unaccent("IKURRIÑA"))
}

func TestWhitespacesClean(t *testing.T) {
	assert.Equal(t, "CABO DA CRUZ", WhitespacesClean("  CABO   DA\tCRUZ "))
	assert.Equal(t, "", WhitespacesClean("   "))
}

func TestRemoveSymbols(t *testing.T) {
	assert.Equal(t, "PLAY OFF ACT", RemoveSymbols("PLAY-OFF (ACT)"))
	assert.Equal(t, "KAIKU", RemoveSymbols("KAIKU!"))
}

func TestRemoveConjunctions(t *testing.T) {
	assert.Equal(t, "CLUB REMO PUEBLA", RemoveConjunctions("CLUB DE REMO DE LA PUEBLA"))
	assert.Equal(t, "BANDEIRA CONCELLO BUEU", RemoveConjunctions("BANDEIRA DO CONCELLO DE BUEU"))
}

func TestRemoveParenthesis(t *testing.T) {
	assert.Equal(t, "PUEBLA", RemoveParenthesis("PUEBLA (B)"))
	assert.Equal(t, "BANDERA CLASIFICATORIA", RemoveParenthesisKeepContent("BANDERA (CLASIFICATORIA)"))
}

func TestApplyChain(t *testing.T) {
	got := ApplyChain("  bandeira de  bueu ", "uppercase", "whitespaces", "unaccent")
	assert.Equal(t, "BANDEIRA DE BUEU", got)
}

func TestApplyUnknownNormalizerIsIdentity(t *testing.T) {
	assert.Equal(t, "x", Apply("x", "nope"))
}
