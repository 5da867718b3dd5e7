package repository

import (
	"errors"
	"time"

	"github.com/sylvan-next/internal/constants"
	"github.com/sylvan-next/internal/models"

	"gorm.io/gorm"
)

// AdoptionRepository 认养记录数据访问接口
type AdoptionRepository interface {
	Create(adoption *models.Adoption) error
	GetByID(id uint) (*models.Adoption, error)
	List(filter AdoptionListFilter) ([]models.Adoption, int64, error)
	ListActiveSlotsByPlot(plotID uint) ([]int, error)
	CountActiveByPlot(plotID uint) (int64, error)
	CountActiveByTree(treeID uint) (int64, error)
	ExistsActiveByTreeAndUser(treeID, userID uint) (bool, error)
	CountByUser(userID uint) (int64, error)
	ExpireLapsedByPlot(plotID uint, now time.Time) (int64, error)
	ExpireLapsedByTree(treeID uint, now time.Time) (int64, error)
	ListLapsedTreeIDs(now time.Time) ([]uint, error)
	ListLapsedPlotIDs(now time.Time) ([]uint, error)
	MarkCertified(id uint, at time.Time) error
	WithTx(tx *gorm.DB) AdoptionRepository
}

// GormAdoptionRepository GORM 实现
type GormAdoptionRepository struct {
	db *gorm.DB
}

// NewAdoptionRepository 创建认养记录仓库
func NewAdoptionRepository(db *gorm.DB) *GormAdoptionRepository {
	return &GormAdoptionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAdoptionRepository) WithTx(tx *gorm.DB) AdoptionRepository {
	if tx == nil {
		return r
	}
	return &GormAdoptionRepository{db: tx}
}

// Create 创建认养记录
func (r *GormAdoptionRepository) Create(adoption *models.Adoption) error {
	return r.db.Create(adoption).Error
}

// GetByID 根据 ID 获取认养记录
func (r *GormAdoptionRepository) GetByID(id uint) (*models.Adoption, error) {
	var adoption models.Adoption
	if err := r.db.First(&adoption, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &adoption, nil
}

// List 认养记录列表
func (r *GormAdoptionRepository) List(filter AdoptionListFilter) ([]models.Adoption, int64, error) {
	query := r.db.Model(&models.Adoption{})

	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.TreeID != 0 {
		query = query.Where("tree_id = ?", filter.TreeID)
	}
	if filter.PlotID != 0 {
		query = query.Where("plot_id = ?", filter.PlotID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var adoptions []models.Adoption
	if err := query.Order("id DESC").Find(&adoptions).Error; err != nil {
		return nil, 0, err
	}
	return adoptions, total, nil
}

// ListActiveSlotsByPlot 获取地块当前有效认养占用的槽位编号（升序）
func (r *GormAdoptionRepository) ListActiveSlotsByPlot(plotID uint) ([]int, error) {
	var slots []int
	if err := r.db.Model(&models.Adoption{}).
		Where("plot_id = ? AND status = ?", plotID, constants.AdoptionStatusActive).
		Order("slot_no ASC").
		Pluck("slot_no", &slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

// CountActiveByPlot 统计地块有效认养数
func (r *GormAdoptionRepository) CountActiveByPlot(plotID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Adoption{}).
		Where("plot_id = ? AND status = ?", plotID, constants.AdoptionStatusActive).
		Count(&count).Error
	return count, err
}

// CountActiveByTree 统计树木有效认养数
func (r *GormAdoptionRepository) CountActiveByTree(treeID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Adoption{}).
		Where("tree_id = ? AND status = ?", treeID, constants.AdoptionStatusActive).
		Count(&count).Error
	return count, err
}

// ExistsActiveByTreeAndUser 判断用户是否已有效认养该树木
func (r *GormAdoptionRepository) ExistsActiveByTreeAndUser(treeID, userID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	var count int64
	err := r.db.Model(&models.Adoption{}).
		Where("tree_id = ? AND user_id = ? AND status = ?", treeID, userID, constants.AdoptionStatusActive).
		Count(&count).Error
	return count > 0, err
}

// CountByUser 统计用户累计认养数（含已到期）
func (r *GormAdoptionRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Adoption{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// ExpireLapsedByPlot 将地块下已过期的有效认养标记为到期，返回受影响行数
func (r *GormAdoptionRepository) ExpireLapsedByPlot(plotID uint, now time.Time) (int64, error) {
	result := r.db.Model(&models.Adoption{}).
		Where("plot_id = ? AND status = ? AND expires_at <= ?", plotID, constants.AdoptionStatusActive, now).
		Updates(map[string]interface{}{
			"status":     constants.AdoptionStatusExpired,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

// ExpireLapsedByTree 将树木下已过期的有效认养标记为到期，返回受影响行数
func (r *GormAdoptionRepository) ExpireLapsedByTree(treeID uint, now time.Time) (int64, error) {
	result := r.db.Model(&models.Adoption{}).
		Where("tree_id = ? AND status = ? AND expires_at <= ?", treeID, constants.AdoptionStatusActive, now).
		Updates(map[string]interface{}{
			"status":     constants.AdoptionStatusExpired,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

// ListLapsedTreeIDs 列出存在已过期有效认养的树木 ID
func (r *GormAdoptionRepository) ListLapsedTreeIDs(now time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Adoption{}).
		Where("tree_id IS NOT NULL AND status = ? AND expires_at <= ?", constants.AdoptionStatusActive, now).
		Distinct().
		Pluck("tree_id", &ids).Error
	return ids, err
}

// ListLapsedPlotIDs 列出存在已过期有效认养的地块 ID
func (r *GormAdoptionRepository) ListLapsedPlotIDs(now time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Adoption{}).
		Where("plot_id IS NOT NULL AND status = ? AND expires_at <= ?", constants.AdoptionStatusActive, now).
		Distinct().
		Pluck("plot_id", &ids).Error
	return ids, err
}

// MarkCertified 记录证书发送时间
func (r *GormAdoptionRepository) MarkCertified(id uint, at time.Time) error {
	return r.db.Model(&models.Adoption{}).
		Where("id = ?", id).
		UpdateColumn("certified_at", at).Error
}
