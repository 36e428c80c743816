package services

import (
	"net/http"

	apperrors "github.com/athlos-app/athlos/pkg/errors"
)

var (
	// ErrUserNotFound indicates the referenced user does not exist or is deactivated.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrTeamNotFound indicates the requested team does not exist.
	ErrTeamNotFound = apperrors.New("TEAM_NOT_FOUND", "Team not found", http.StatusNotFound)
	// ErrTeamMemberAlreadyExists signals the user is already a member of the team.
	ErrTeamMemberAlreadyExists = apperrors.New("TEAM_MEMBER_EXISTS", "User already assigned to team", http.StatusConflict)
	// ErrTeamMemberNotFound indicates the requested membership does not exist.
	ErrTeamMemberNotFound = apperrors.New("TEAM_MEMBER_NOT_FOUND", "User is not a member of the team", http.StatusNotFound)
	// ErrTeamFull signals the team has reached its configured capacity.
	ErrTeamFull = apperrors.New("TEAM_FULL", "Team has reached its capacity", http.StatusConflict)
	// ErrConversationNotFound indicates the requested conversation does not exist or is inactive.
	ErrConversationNotFound = apperrors.New("CONVERSATION_NOT_FOUND", "Conversation not found", http.StatusNotFound)
	// ErrMessageNotFound indicates the requested message does not exist.
	ErrMessageNotFound = apperrors.New("MESSAGE_NOT_FOUND", "Message not found", http.StatusNotFound)
)
