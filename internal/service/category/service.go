package category

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"storefront/internal/domain"
	categoryrepo "storefront/internal/repository/category"
)

type Service struct {
	repo categoryrepo.Repository
}

func New(repo categoryrepo.Repository) *Service {
	return &Service{repo: repo}
}

type CreateInput struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
}

// Tree returns the root categories with their descendants nested under Children.
func (s *Service) Tree(ctx context.Context) ([]domain.Category, error) {
	flat, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return buildTree(flat), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Category, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", domain.ErrInvalidInput)
	}
	if in.ParentID != nil {
		if _, err := s.repo.GetByID(ctx, *in.ParentID); err != nil {
			return nil, err
		}
	}
	return s.repo.Create(ctx, domain.Category{Name: name, ParentID: in.ParentID})
}

func (s *Service) Rename(ctx context.Context, id, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", domain.ErrInvalidInput)
	}
	return s.repo.Rename(ctx, id, name)
}

// Delete removes the category and all of its descendants.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func buildTree(flat []domain.Category) []domain.Category {
	children := make(map[string][]domain.Category)
	var roots []domain.Category
	ids := make(map[string]bool, len(flat))
	for _, c := range flat {
		ids[c.ID] = true
	}
	for _, c := range flat {
		if c.ParentID == nil || !ids[*c.ParentID] {
			roots = append(roots, c)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
	}

	var attach func(c domain.Category) domain.Category
	attach = func(c domain.Category) domain.Category {
		kids := children[c.ID]
		sort.Slice(kids, func(i, j int) bool { return kids[i].Name < kids[j].Name })
		c.Children = make([]domain.Category, 0, len(kids))
		for _, k := range kids {
			c.Children = append(c.Children, attach(k))
		}
		return c
	}

	sort.Slice(roots, func(i, j int) bool { return roots[i].Name < roots[j].Name })
	out := make([]domain.Category, 0, len(roots))
	for _, r := range roots {
		out = append(out, attach(r))
	}
	return out
}
