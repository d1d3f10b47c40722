package review

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"storefront/internal/domain"
	reviewrepo "storefront/internal/repository/review"
)

const maxDescriptionLen = 2000

type Service struct {
	repo   reviewrepo.Repository
	logger *zap.Logger
}

func New(repo reviewrepo.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger.Named("reviews")}
}

type Input struct {
	Rating      int    `json:"rating"`
	Description string `json:"description"`
}

// Add records userID's review of productID. Each user reviews a product once.
func (s *Service) Add(ctx context.Context, userID, productID string, in Input) (*domain.Review, error) {
	if in.Rating < domain.MinRating || in.Rating > domain.MaxRating {
		return nil, fmt.Errorf("%w: rating must be between %d and %d", domain.ErrInvalidInput, domain.MinRating, domain.MaxRating)
	}
	desc := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return nil, fmt.Errorf("%w: description longer than %d characters", domain.ErrInvalidInput, maxDescriptionLen)
	}

	rv, err := s.repo.Create(ctx, domain.Review{
		UserID:      userID,
		ProductID:   productID,
		Rating:      in.Rating,
		Description: desc,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("review added",
		zap.String("review_id", rv.ID),
		zap.String("product_id", productID),
		zap.Int("rating", rv.Rating),
	)
	return rv, nil
}

func (s *Service) List(ctx context.Context, productID string) ([]domain.Review, error) {
	return s.repo.ListByProduct(ctx, productID)
}
