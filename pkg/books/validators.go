package books

// SearchBooksQuery represents the query parameters for searching the catalog.
type SearchBooksQuery struct {
	SearchString *string `query:"searchString" validate:"omitempty,max=100"`
	Page         int     `query:"page" validate:"min=0"`
	Size         int     `query:"size" default:"10" validate:"min=1,max=100"`
	Sort         string  `query:"sort" default:"title" validate:"oneof=title author isbn published_at"`
}
