package groups

type CreateGroupRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type RenameGroupRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type GroupListResponse struct {
	Groups []Group `json:"groups"`
	Total  int     `json:"total"`
}
