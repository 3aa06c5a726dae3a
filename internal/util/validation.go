package util

import (
	"regexp"
	"strings"

	apperrors "github.com/fluffytime/chat-server-go/internal/errors"
)

const maxNicknameLength = 30

var roomNamePattern = regexp.MustCompile(`^chat_\d+_\d+$`)

// ValidateNickname rejects nicknames that could never match a stored user.
func ValidateNickname(nickname string) error {
	if nickname == "" {
		return apperrors.InvalidInput("nickname", "must not be empty")
	}
	if len(nickname) > maxNicknameLength {
		return apperrors.InvalidInput("nickname", "too long")
	}
	if strings.ContainsAny(nickname, " \t\r\n") {
		return apperrors.InvalidInput("nickname", "must not contain whitespace")
	}
	return nil
}

// ValidateRoomName checks the canonical chat_<id>_<id> shape.
func ValidateRoomName(roomName string) error {
	if !roomNamePattern.MatchString(roomName) {
		return apperrors.InvalidInput("roomName", "must look like chat_<id>_<id>")
	}
	return nil
}
