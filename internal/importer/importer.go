package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	categorysvc "storefront/internal/service/category"
	productsvc "storefront/internal/service/product"
)

type ProductWriter interface {
	Create(ctx context.Context, in productsvc.CreateInput) (*domain.Product, error)
}

type CategoryStore interface {
	Tree(ctx context.Context) ([]domain.Category, error)
	Create(ctx context.Context, in categorysvc.CreateInput) (*domain.Category, error)
}

// CSVImporter reads catalog CSV files and creates products with their variants.
//
// Expected columns: title, description, category, image, color, size, price.
// A row with a title starts a new product; rows without one add variants to
// the product above them.
type CSVImporter struct {
	reader     *csv.Reader
	products   ProductWriter
	categories CategoryStore
	logger     *zap.Logger

	categoryIDs map[string]string
}

func NewCSVImporter(r io.Reader, products ProductWriter, categories CategoryStore, logger *zap.Logger) *CSVImporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader:     csvr,
		products:   products,
		categories: categories,
		logger:     logger.Named("importer"),
	}
}

type csvRow struct {
	line        int
	Title       string
	Description string
	Category    string
	Image       string
	Variant     *productsvc.VariantInput
}

// Run parses CSV rows and creates one product per titled row group.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["title"]; !ok {
		return 0, errors.New("missing title column")
	}

	var (
		current  *productsvc.CreateInput
		category string
		imported int
	)
	flush := func() error {
		if current == nil {
			return nil
		}
		if err := i.save(ctx, current, category); err != nil {
			return err
		}
		imported++
		return nil
	}

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		line, _ := i.reader.FieldPos(0)

		row, err := parseRow(record, index, line)
		if err != nil {
			return imported, err
		}
		if row == nil {
			continue
		}

		if row.Title != "" {
			if err := flush(); err != nil {
				return imported, err
			}
			current = &productsvc.CreateInput{
				Title:       row.Title,
				Description: row.Description,
				ImageURL:    row.Image,
			}
			category = row.Category
		} else if current == nil {
			return imported, fmt.Errorf("line %d: variant row before any product", row.line)
		}
		if row.Variant != nil {
			current.Variants = append(current.Variants, *row.Variant)
		}
	}

	if err := flush(); err != nil {
		return imported, err
	}
	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, in *productsvc.CreateInput, category string) error {
	if category != "" {
		id, err := i.categoryID(ctx, category)
		if err != nil {
			return fmt.Errorf("resolve category %q: %w", category, err)
		}
		in.CategoryID = &id
	}
	p, err := i.products.Create(ctx, *in)
	if err != nil {
		return fmt.Errorf("create product %q: %w", in.Title, err)
	}
	i.logger.Debug("imported product",
		zap.String("product_id", p.ID),
		zap.String("title", p.Title),
		zap.Int("variants", len(p.Variants)),
	)
	return nil
}

// categoryID resolves a category by name, creating a root category when none exists.
func (i *CSVImporter) categoryID(ctx context.Context, name string) (string, error) {
	if i.categoryIDs == nil {
		tree, err := i.categories.Tree(ctx)
		if err != nil {
			return "", err
		}
		i.categoryIDs = make(map[string]string)
		indexCategories(tree, i.categoryIDs)
	}
	key := strings.ToLower(name)
	if id, ok := i.categoryIDs[key]; ok {
		return id, nil
	}
	c, err := i.categories.Create(ctx, categorysvc.CreateInput{Name: name})
	if err != nil {
		return "", err
	}
	i.categoryIDs[key] = c.ID
	i.logger.Info("created category", zap.String("category_id", c.ID), zap.String("name", name))
	return c.ID, nil
}

func indexCategories(tree []domain.Category, into map[string]string) {
	for _, c := range tree {
		key := strings.ToLower(c.Name)
		if _, taken := into[key]; !taken {
			into[key] = c.ID
		}
		indexCategories(c.Children, into)
	}
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int, line int) (*csvRow, error) {
	row := &csvRow{
		line:        line,
		Title:       pick(record, index, "title"),
		Description: pick(record, index, "description"),
		Category:    pick(record, index, "category"),
		Image:       pick(record, index, "image"),
	}

	color := pick(record, index, "color")
	size := pick(record, index, "size")
	price := pick(record, index, "price")
	if price != "" {
		p, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid price %q", line, price)
		}
		row.Variant = &productsvc.VariantInput{
			Color: domain.Color(color),
			Size:  domain.Size(size),
			Price: p,
		}
	} else if color != "" || size != "" {
		return nil, fmt.Errorf("line %d: variant without price", line)
	}

	if row.Title == "" && row.Variant == nil {
		return nil, nil
	}
	return row, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
