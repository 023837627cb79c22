package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeClubName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "strips legal form titles",
			raw:  "Club de Remo Puebla",
			want: "PUEBLA",
		},
		{
			name: "strips parenthetical content",
			raw:  "ZIERBENA (BAHIAS DE BIZKAIA)",
			want: "ZIERBENA",
		},
		{
			name: "collapses whitespace",
			raw:  "  CR   CHAPELA ",
			want: "CR CHAPELA",
		},
		{
			name: "leaves hyphenated names alone without a lookup",
			raw:  "KAIKU - ROYAL",
			want: "KAIKU - ROYAL",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeClubName(tt.raw, nil))
		})
	}
}

func TestNormalizeClubNameIdempotent(t *testing.T) {
	once := NormalizeClubName("Sociedad Deportiva Tirán (Pereira)", nil)
	assert.Equal(t, once, NormalizeClubName(once, nil))
}

func TestNormalizeClubNameSponsorSplit(t *testing.T) {
	known := map[string]bool{"KAIKU": true, "CASTRO URDIALES": true, "LAREDO": true}
	lookup := func(fragment string) bool { return known[fragment] }

	t.Run("keeps the half that is a club", func(t *testing.T) {
		assert.Equal(t, "KAIKU", NormalizeClubName("KAIKU - ROYAL", lookup))
		assert.Equal(t, "KAIKU", NormalizeClubName("ROYAL - KAIKU", lookup))
	})

	t.Run("joins both halves when both are clubs", func(t *testing.T) {
		assert.Equal(t, "CASTRO URDIALES - LAREDO", NormalizeClubName("CASTRO URDIALES-LAREDO", lookup))
	})

	t.Run("leaves the name alone when neither half is a club", func(t *testing.T) {
		assert.Equal(t, "ROYAL - PETRONOR", NormalizeClubName("ROYAL - PETRONOR", lookup))
	})
}

func TestBranchHelpers(t *testing.T) {
	assert.True(t, IsBranchClub("CR CHAPELA B", "B"))
	assert.False(t, IsBranchClub("CR CHAPELA", "B"))

	assert.Equal(t, "B", BranchLetter("cabo da cruz b"))
	assert.Equal(t, "C", BranchLetter("ZIERBENA C"))
	assert.Equal(t, "", BranchLetter("ZIERBENA"))

	assert.Equal(t, "ZIERBENA", TrimBranch("ZIERBENA B"))
	assert.Equal(t, "SAN JUAN", TrimBranch("SAN JUAN"))
}
