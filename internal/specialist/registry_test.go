package specialist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Validates(t *testing.T) {
	require.NoError(t, ValidateRegistry())
	assert.Len(t, Codes(), 8)

	for _, code := range Codes() {
		assert.True(t, code.Valid(), "code %s should be registered", code)
		def, err := Lookup(code)
		require.NoError(t, err)
		assert.Equal(t, code, def.Code)
		assert.NotEmpty(t, def.Description)
		assert.NotEmpty(t, def.DocumentType)
	}
}

func TestRegistry_UnknownCodeRejected(t *testing.T) {
	assert.False(t, Code("plumber").Valid())

	_, err := Lookup(Code("plumber"))
	assert.Error(t, err)
}

func TestDifficulty_EscalateCapsAtExpert(t *testing.T) {
	assert.Equal(t, DifficultyStandard, DifficultyBasic.Escalate())
	assert.Equal(t, DifficultyAdvanced, DifficultyStandard.Escalate())
	assert.Equal(t, DifficultyExpert, DifficultyAdvanced.Escalate())
	assert.Equal(t, DifficultyExpert, DifficultyExpert.Escalate())
}

func TestDifficulty_String(t *testing.T) {
	assert.Equal(t, "basic", DifficultyBasic.String())
	assert.Equal(t, "expert", DifficultyExpert.String())
	assert.Equal(t, "difficulty(9)", Difficulty(9).String())
}

func TestDocumentDifficulty(t *testing.T) {
	assert.Equal(t, DifficultyExpert, DocumentDifficulty("decision_packet"))
	assert.Equal(t, DifficultyBasic, DocumentDifficulty("summary"))
	// Unknown document types default to the middle of the range.
	assert.Equal(t, DifficultyStandard, DocumentDifficulty("mystery_scroll"))
}
