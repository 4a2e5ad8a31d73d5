package models

// SearchResults groups case-insensitive substring matches by entity
// type. Only entities on projects the requesting user can at least view
// are ever included.
type SearchResults struct {
	Projects []Project        `json:"projects"`
	Tasks    []Task           `json:"tasks"`
	Comments []ProjectComment `json:"comments"`
	Files    []ProjectFile    `json:"files"`
}

// Total returns the combined number of matches.
func (r *SearchResults) Total() int {
	return len(r.Projects) + len(r.Tasks) + len(r.Comments) + len(r.Files)
}

// SearchFilter narrows a search to particular entity types.
type SearchFilter struct {
	Types []string
	Limit int
}
