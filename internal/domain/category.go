package domain

import "time"

type Category struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	ParentID  *string    `json:"parentId,omitempty"`
	Children  []Category `json:"children,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}
