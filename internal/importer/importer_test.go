package importer

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"storefront/internal/domain"
	categorysvc "storefront/internal/service/category"
	productsvc "storefront/internal/service/product"
)

type stubProductWriter struct {
	items []productsvc.CreateInput
	err   error
}

func (s *stubProductWriter) Create(_ context.Context, in productsvc.CreateInput) (*domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.items = append(s.items, in)
	return &domain.Product{ID: "p" + strconv.Itoa(len(s.items)), Title: in.Title}, nil
}

type stubCategoryStore struct {
	tree    []domain.Category
	created []string
	treeErr error
}

func (s *stubCategoryStore) Tree(context.Context) ([]domain.Category, error) {
	return s.tree, s.treeErr
}

func (s *stubCategoryStore) Create(_ context.Context, in categorysvc.CreateInput) (*domain.Category, error) {
	s.created = append(s.created, in.Name)
	return &domain.Category{ID: "new-" + in.Name, Name: in.Name}, nil
}

func TestCSVImporter_Run(t *testing.T) {
	csvData := `title,description,category,image,color,size,price
Classic Tee,Cotton tee,Shirts,https://example.com/tee.jpg,Black,M,19.99
,,,,White,L,21.50
Hoodie,Warm,Outerwear,,Red,S,45
,,,,,,
Cap,,, ,,,9.90,
`
	products := &stubProductWriter{}
	categories := &stubCategoryStore{tree: []domain.Category{
		{ID: "c1", Name: "Clothing", Children: []domain.Category{{ID: "c2", Name: "Shirts"}}},
	}}
	imp := NewCSVImporter(strings.NewReader(csvData), products, categories, nil)

	count, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 products imported, got %d", count)
	}

	tee := products.items[0]
	if len(tee.Variants) != 2 || tee.Variants[1].Color != domain.ColorWhite || tee.Variants[1].Price.String() != "21.5" {
		t.Fatalf("unexpected tee variants: %+v", tee.Variants)
	}
	if tee.CategoryID == nil || *tee.CategoryID != "c2" {
		t.Fatalf("expected nested category to be matched by name, got %v", tee.CategoryID)
	}
	if tee.ImageURL != "https://example.com/tee.jpg" {
		t.Fatalf("unexpected image %q", tee.ImageURL)
	}

	hoodie := products.items[1]
	if hoodie.CategoryID == nil || *hoodie.CategoryID != "new-Outerwear" {
		t.Fatalf("expected missing category to be created, got %v", hoodie.CategoryID)
	}
	if len(categories.created) != 1 {
		t.Fatalf("expected one category created, got %v", categories.created)
	}

	hat := products.items[2]
	if hat.CategoryID != nil || len(hat.Variants) != 1 || hat.Variants[0].Color != "" {
		t.Fatalf("unexpected cap: %+v", hat)
	}
}

func TestCSVImporter_Errors(t *testing.T) {
	cases := map[string]string{
		"missing title column":  "name,price\nTee,10\n",
		"variant before product": "title,price\n,10\n",
		"bad price":              "title,price\nTee,ten\n",
		"variant without price":  "title,color\nTee,Red\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			imp := NewCSVImporter(strings.NewReader(data), &stubProductWriter{}, &stubCategoryStore{}, nil)
			if _, err := imp.Run(context.Background()); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestCSVImporter_PropagatesWriteErrors(t *testing.T) {
	writer := &stubProductWriter{err: domain.ErrInvalidInput}
	imp := NewCSVImporter(strings.NewReader("title,price\nTee,-1\n"), writer, &stubCategoryStore{}, nil)

	count, err := imp.Run(context.Background())
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if count != 0 {
		t.Fatalf("expected nothing imported, got %d", count)
	}
}
