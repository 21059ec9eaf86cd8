package domain

type Role string

const (
	RoleModerator   Role = "moderator"
	RoleParticipant Role = "participant"
)

func (r Role) IsModerator() bool {
	return r == RoleModerator
}
