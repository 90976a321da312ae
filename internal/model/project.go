package model

import "strconv"

// Project is one logical tenant. Identity is the id; projects created
// implicitly during ingestion have no name until someone sets one.
type Project struct {
	ID   int64   `json:"id"`
	Name *string `json:"name"`
}

// DisplayName returns the project name, or the id rendered as a string when
// no name has been set.
func (p Project) DisplayName() string {
	if p.Name != nil && *p.Name != "" {
		return *p.Name
	}
	return strconv.FormatInt(p.ID, 10)
}
