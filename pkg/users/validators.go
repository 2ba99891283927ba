package users

// SearchUsersQuery represents the query parameters for searching the
// directory.
type SearchUsersQuery struct {
	SearchString *string `query:"searchString" validate:"omitempty,max=100"`
	Page         int     `query:"page" validate:"min=0"`
	Size         int     `query:"size" default:"10" validate:"min=1,max=100"`
	Sort         string  `query:"sort" default:"username" validate:"oneof=username firstname lastname email"`
}

// CreateUserPayload represents the request body for creating a user.
type CreateUserPayload struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Firstname string `json:"firstname" validate:"required,max=100"`
	Lastname  string `json:"lastname" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
}
