package service

import (
	"time"

	"github.com/sylvan-next/internal/constants"
	"github.com/sylvan-next/internal/logger"
	"github.com/sylvan-next/internal/models"
	"github.com/sylvan-next/internal/repository"

	"gorm.io/gorm"
)

// AdoptionService 认养服务（树木认养与地块槽位分配）
type AdoptionService struct {
	treeRepo     repository.TreeRepository
	plotRepo     repository.LandPlotRepository
	adoptionRepo repository.AdoptionRepository
}

// NewAdoptionService 创建认养服务
func NewAdoptionService(
	treeRepo repository.TreeRepository,
	plotRepo repository.LandPlotRepository,
	adoptionRepo repository.AdoptionRepository,
) *AdoptionService {
	return &AdoptionService{
		treeRepo:     treeRepo,
		plotRepo:     plotRepo,
		adoptionRepo: adoptionRepo,
	}
}

// AdoptionGrant 一次认养的归属信息
type AdoptionGrant struct {
	UserID       uint
	OrderID      uint
	AdopterName  string
	AdopterEmail string
	GiftMessage  string
}

// adoptionExpiry 认养到期时间（认养起一年）
func adoptionExpiry(now time.Time) time.Time {
	return now.AddDate(0, 0, constants.AdoptionTermDays)
}

// AdoptTreeInTx 在事务内为用户认养树木。
// 树木行锁串行化并发认养；同一用户不可重复持有同一树木的有效认养。
func (s *AdoptionService) AdoptTreeInTx(tx *gorm.DB, treeID uint, grant AdoptionGrant) (*models.Adoption, error) {
	treeRepo := s.treeRepo.WithTx(tx)
	adoptionRepo := s.adoptionRepo.WithTx(tx)
	now := time.Now()

	tree, err := treeRepo.GetByIDForUpdate(treeID)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, ErrTreeNotFound
	}

	// 先惰性释放已到期的认养，再统计占用
	if lapsed, err := adoptionRepo.ExpireLapsedByTree(treeID, now); err != nil {
		return nil, err
	} else if lapsed > 0 {
		logger.Infow("tree_adoptions_lapsed", "tree_id", treeID, "count", lapsed)
	}

	exists, err := adoptionRepo.ExistsActiveByTreeAndUser(treeID, grant.UserID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrTreeAlreadyAdopted
	}

	active, err := adoptionRepo.CountActiveByTree(treeID)
	if err != nil {
		return nil, err
	}
	if active >= int64(tree.AdopterCap) {
		return nil, ErrTreeExhausted
	}

	adoption := &models.Adoption{
		UserID:       grant.UserID,
		OrderID:      grant.OrderID,
		TreeID:       &tree.ID,
		AdopterName:  grant.AdopterName,
		AdopterEmail: grant.AdopterEmail,
		GiftMessage:  grant.GiftMessage,
		Status:       constants.AdoptionStatusActive,
		ExpiresAt:    adoptionExpiry(now),
	}
	if err := adoptionRepo.Create(adoption); err != nil {
		return nil, err
	}

	status := constants.TreeStatusAvailable
	if active+1 >= int64(tree.AdopterCap) {
		status = constants.TreeStatusFullyAdopted
	}
	if err := treeRepo.UpdateColumns(tree.ID, map[string]interface{}{
		"adopted_count": active + 1,
		"status":        status,
		"updated_at":    now,
	}); err != nil {
		return nil, err
	}

	return adoption, nil
}

// AllocatePlotSlotInTx 在事务内为用户分配地块槽位。
// 地块行锁串行化分配；总是选择最小的空闲槽位编号（1..total_slots）。
func (s *AdoptionService) AllocatePlotSlotInTx(tx *gorm.DB, plotID uint, grant AdoptionGrant) (*models.Adoption, error) {
	plotRepo := s.plotRepo.WithTx(tx)
	adoptionRepo := s.adoptionRepo.WithTx(tx)
	now := time.Now()

	plot, err := plotRepo.GetByIDForUpdate(plotID)
	if err != nil {
		return nil, err
	}
	if plot == nil {
		return nil, ErrPlotNotFound
	}

	if lapsed, err := adoptionRepo.ExpireLapsedByPlot(plotID, now); err != nil {
		return nil, err
	} else if lapsed > 0 {
		logger.Infow("plot_adoptions_lapsed", "plot_id", plotID, "count", lapsed)
	}

	occupied, err := adoptionRepo.ListActiveSlotsByPlot(plotID)
	if err != nil {
		return nil, err
	}
	if len(occupied) >= plot.TotalSlots {
		return nil, ErrPlotExhausted
	}

	slotNo := lowestFreeSlot(occupied, plot.TotalSlots)
	if slotNo == 0 {
		return nil, ErrPlotExhausted
	}

	adoption := &models.Adoption{
		UserID:       grant.UserID,
		OrderID:      grant.OrderID,
		PlotID:       &plot.ID,
		SlotNo:       slotNo,
		AdopterName:  grant.AdopterName,
		AdopterEmail: grant.AdopterEmail,
		GiftMessage:  grant.GiftMessage,
		Status:       constants.AdoptionStatusActive,
		ExpiresAt:    adoptionExpiry(now),
	}
	if err := adoptionRepo.Create(adoption); err != nil {
		return nil, err
	}

	status := constants.PlotStatusAvailable
	if len(occupied)+1 >= plot.TotalSlots {
		status = constants.PlotStatusFullyOccupied
	}
	if err := plotRepo.UpdateColumns(plot.ID, map[string]interface{}{
		"occupied_count": len(occupied) + 1,
		"status":         status,
		"updated_at":     now,
	}); err != nil {
		return nil, err
	}

	return adoption, nil
}

// lowestFreeSlot 返回最小空闲槽位编号，无空闲时返回 0。
func lowestFreeSlot(occupied []int, totalSlots int) int {
	taken := make(map[int]struct{}, len(occupied))
	for _, slot := range occupied {
		taken[slot] = struct{}{}
	}
	for slot := 1; slot <= totalSlots; slot++ {
		if _, ok := taken[slot]; !ok {
			return slot
		}
	}
	return 0
}

// Get 获取认养记录
func (s *AdoptionService) Get(id uint) (*models.Adoption, error) {
	return s.adoptionRepo.GetByID(id)
}

// List 认养记录列表
func (s *AdoptionService) List(filter repository.AdoptionListFilter) ([]models.Adoption, int64, error) {
	return s.adoptionRepo.List(filter)
}

// CountByUser 用户累计认养数（里程碑判定用）
func (s *AdoptionService) CountByUser(userID uint) (int64, error) {
	return s.adoptionRepo.CountByUser(userID)
}

// SweepLapsed 释放所有已到期的认养并回写占用计数。
// 分配路径已做惰性释放，这里兜底处理长期无人访问的树木与地块。
func (s *AdoptionService) SweepLapsed(now time.Time) error {
	treeIDs, err := s.adoptionRepo.ListLapsedTreeIDs(now)
	if err != nil {
		return err
	}
	for _, treeID := range treeIDs {
		if err := s.sweepTree(treeID, now); err != nil {
			logger.Warnw("adoption_sweep_tree_failed", "tree_id", treeID, "error", err)
		}
	}

	plotIDs, err := s.adoptionRepo.ListLapsedPlotIDs(now)
	if err != nil {
		return err
	}
	for _, plotID := range plotIDs {
		if err := s.sweepPlot(plotID, now); err != nil {
			logger.Warnw("adoption_sweep_plot_failed", "plot_id", plotID, "error", err)
		}
	}
	return nil
}

func (s *AdoptionService) sweepTree(treeID uint, now time.Time) error {
	return models.DB.Transaction(func(tx *gorm.DB) error {
		treeRepo := s.treeRepo.WithTx(tx)
		adoptionRepo := s.adoptionRepo.WithTx(tx)

		tree, err := treeRepo.GetByIDForUpdate(treeID)
		if err != nil {
			return err
		}
		if tree == nil {
			return nil
		}
		lapsed, err := adoptionRepo.ExpireLapsedByTree(treeID, now)
		if err != nil {
			return err
		}
		if lapsed == 0 {
			return nil
		}
		active, err := adoptionRepo.CountActiveByTree(treeID)
		if err != nil {
			return err
		}
		status := constants.TreeStatusAvailable
		if active >= int64(tree.AdopterCap) {
			status = constants.TreeStatusFullyAdopted
		}
		logger.Infow("tree_adoptions_lapsed", "tree_id", treeID, "count", lapsed)
		return treeRepo.UpdateColumns(treeID, map[string]interface{}{
			"adopted_count": active,
			"status":        status,
			"updated_at":    now,
		})
	})
}

func (s *AdoptionService) sweepPlot(plotID uint, now time.Time) error {
	return models.DB.Transaction(func(tx *gorm.DB) error {
		plotRepo := s.plotRepo.WithTx(tx)
		adoptionRepo := s.adoptionRepo.WithTx(tx)

		plot, err := plotRepo.GetByIDForUpdate(plotID)
		if err != nil {
			return err
		}
		if plot == nil {
			return nil
		}
		lapsed, err := adoptionRepo.ExpireLapsedByPlot(plotID, now)
		if err != nil {
			return err
		}
		if lapsed == 0 {
			return nil
		}
		active, err := adoptionRepo.CountActiveByPlot(plotID)
		if err != nil {
			return err
		}
		status := constants.PlotStatusAvailable
		if active >= int64(plot.TotalSlots) {
			status = constants.PlotStatusFullyOccupied
		}
		logger.Infow("plot_adoptions_lapsed", "plot_id", plotID, "count", lapsed)
		return plotRepo.UpdateColumns(plotID, map[string]interface{}{
			"occupied_count": active,
			"status":         status,
			"updated_at":     now,
		})
	})
}
