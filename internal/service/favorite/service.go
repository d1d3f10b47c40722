package favorite

import (
	"context"

	"go.uber.org/zap"

	"storefront/internal/domain"
	favoriterepo "storefront/internal/repository/favorite"
)

type Service struct {
	repo   favoriterepo.Repository
	logger *zap.Logger
}

func New(repo favoriterepo.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger.Named("favorites")}
}

// Add marks productID as a favorite of userID and returns the updated list.
func (s *Service) Add(ctx context.Context, userID, productID string) ([]domain.Product, error) {
	if err := s.repo.Add(ctx, userID, productID); err != nil {
		return nil, err
	}
	s.logger.Debug("favorite added", zap.String("user_id", userID), zap.String("product_id", productID))
	return s.repo.ListByUser(ctx, userID)
}

// Remove drops productID from the user's favorites and returns the updated list.
func (s *Service) Remove(ctx context.Context, userID, productID string) ([]domain.Product, error) {
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		return nil, err
	}
	s.logger.Debug("favorite removed", zap.String("user_id", userID), zap.String("product_id", productID))
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) List(ctx context.Context, userID string) ([]domain.Product, error) {
	return s.repo.ListByUser(ctx, userID)
}
