package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"service-dispatch/internal/dto"
	"service-dispatch/internal/entities"
	"service-dispatch/internal/repositories"
	apperrors "service-dispatch/pkg/errors"
	"service-dispatch/pkg/utils"

	"go.uber.org/zap"
)

type TechnicianServiceInterface interface {
	Login(ctx context.Context, d dto.TechLoginDTO) (*dto.TechnicianDTO, error)
	FindTechnician(ctx context.Context, id uint64) (*dto.TechnicianDTO, error)
}

// TechnicianService identifies a technician by phone or name. There are no
// credentials; this is a lookup, not authentication.
type TechnicianService struct {
	techRepo repositories.TechnicianRepositoryInterface
	cache    repositories.CacheRepositoryInterface
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewTechnicianService builds the service. cache may be nil.
func NewTechnicianService(
	techRepo repositories.TechnicianRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	cacheTTL time.Duration,
	logger *zap.Logger,
) TechnicianServiceInterface {
	return &TechnicianService{techRepo: techRepo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

func (s *TechnicianService) Login(ctx context.Context, d dto.TechLoginDTO) (*dto.TechnicianDTO, error) {
	phone := utils.NormalizePhone(d.Phone)
	name := strings.TrimSpace(d.Name)
	if phone == "" && name == "" {
		return nil, apperrors.NewValidationError("phone", "Phone number or name required")
	}

	key := "tech:login:name:" + strings.ToLower(name)
	if phone != "" {
		key = "tech:login:phone:" + phone
	}
	if tech := s.cached(ctx, key); tech != nil {
		return technicianEntityToDTO(tech), nil
	}

	tech, err := s.lookup(ctx, phone, name)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Info("technician login failed", zap.String("phone", phone), zap.String("name", name))
			return nil, fmt.Errorf("technician not found: %w", apperrors.ErrUnauthorized)
		}
		return nil, err
	}

	s.store(ctx, key, tech)
	s.logger.Info("technician logged in", zap.Uint64("tech_id", tech.ID))
	return technicianEntityToDTO(tech), nil
}

func (s *TechnicianService) lookup(ctx context.Context, phone, name string) (*entities.Technician, error) {
	if phone != "" {
		tech, err := s.techRepo.FindByPhone(ctx, phone)
		if err == nil || !errors.Is(err, apperrors.ErrNotFound) || name == "" {
			return tech, err
		}
	}
	return s.techRepo.FindByName(ctx, name)
}

func (s *TechnicianService) FindTechnician(ctx context.Context, id uint64) (*dto.TechnicianDTO, error) {
	tech, err := s.techRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return technicianEntityToDTO(tech), nil
}

// cached returns nil on a miss or any cache failure.
func (s *TechnicianService) cached(ctx context.Context, key string) *entities.Technician {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repositories.ErrCacheMiss) {
			s.logger.Debug("technician cache read failed", zap.Error(err))
		}
		return nil
	}
	var tech entities.Technician
	if err := json.Unmarshal([]byte(raw), &tech); err != nil {
		return nil
	}
	return &tech
}

func (s *TechnicianService) store(ctx context.Context, key string, tech *entities.Technician) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(tech)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.cacheTTL); err != nil {
		s.logger.Debug("technician cache write failed", zap.Error(err))
	}
}
