package access

type CreateGrantRequest struct {
	UserID string `json:"user_id" validate:"required,numeric,max=32"`
	Notes  string `json:"notes,omitempty" validate:"max=500"`
}

type RevokeGrantRequest struct {
	Note string `json:"note,omitempty" validate:"max=500"`
}

type GrantListResponse struct {
	Grants []Grant `json:"grants"`
	Total  int     `json:"total"`
}

type AllowedRolesResponse struct {
	RoleIDs []string `json:"role_ids"`
}
