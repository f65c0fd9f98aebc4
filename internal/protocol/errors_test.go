package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages_EveryCodeHasText(t *testing.T) {
	t.Parallel()

	codes := []int{
		ErrCodeUnknown, ErrCodeInvalidMsg, ErrCodeRateLimit,
		ErrCodeRoomFull, ErrCodeNotInRoom, ErrCodeGameStarted,
		ErrCodeAlreadyInRoom, ErrCodeNotHost, ErrCodeWrongPhase, ErrCodeTooFewPlayers,
		ErrCodeInvalidSettings, ErrCodeInvalidIdentity, ErrCodeInvalidPage,
		ErrCodeServerMaintenance,
	}

	assert.Len(t, ErrorMessages, len(codes))
	for _, code := range codes {
		assert.NotEmpty(t, ErrorMessages[code], "code %d", code)
	}
}
