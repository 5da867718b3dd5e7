package repository

import (
	"errors"

	"github.com/sylvan-next/internal/constants"
	"github.com/sylvan-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LandPlotRepository 地块数据访问接口
type LandPlotRepository interface {
	List(filter LandPlotListFilter) ([]models.LandPlot, int64, error)
	GetByID(id uint) (*models.LandPlot, error)
	GetByIDForUpdate(id uint) (*models.LandPlot, error)
	Create(plot *models.LandPlot) error
	Update(plot *models.LandPlot) error
	UpdateColumns(id uint, updates map[string]interface{}) error
	WithTx(tx *gorm.DB) LandPlotRepository
}

// GormLandPlotRepository GORM 实现
type GormLandPlotRepository struct {
	db *gorm.DB
}

// NewLandPlotRepository 创建地块仓库
func NewLandPlotRepository(db *gorm.DB) *GormLandPlotRepository {
	return &GormLandPlotRepository{db: db}
}

// WithTx 绑定事务
func (r *GormLandPlotRepository) WithTx(tx *gorm.DB) LandPlotRepository {
	if tx == nil {
		return r
	}
	return &GormLandPlotRepository{db: tx}
}

// List 地块列表
func (r *GormLandPlotRepository) List(filter LandPlotListFilter) ([]models.LandPlot, int64, error) {
	var plots []models.LandPlot

	query := r.db.Model(&models.LandPlot{})
	if filter.OnlyAvailable {
		query = query.Where("status = ?", constants.PlotStatusAvailable)
	}
	if filter.Region != "" {
		query = query.Where("region = ?", filter.Region)
	}
	if filter.Search != "" {
		condition, argCount := buildLikeCondition(r.db, []string{"name", "region"})
		query = query.Where(condition, repeatLikeArgs("%"+filter.Search+"%", argCount)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	if err := query.Order("id DESC").Find(&plots).Error; err != nil {
		return nil, 0, err
	}
	return plots, total, nil
}

// GetByID 根据 ID 获取地块
func (r *GormLandPlotRepository) GetByID(id uint) (*models.LandPlot, error) {
	var plot models.LandPlot
	if err := r.db.First(&plot, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plot, nil
}

// GetByIDForUpdate 根据 ID 获取地块并加行锁（事务内使用）
func (r *GormLandPlotRepository) GetByIDForUpdate(id uint) (*models.LandPlot, error) {
	var plot models.LandPlot
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&plot, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plot, nil
}

// Create 创建地块
func (r *GormLandPlotRepository) Create(plot *models.LandPlot) error {
	return r.db.Create(plot).Error
}

// Update 更新地块
func (r *GormLandPlotRepository) Update(plot *models.LandPlot) error {
	return r.db.Save(plot).Error
}

// UpdateColumns 按列更新地块
func (r *GormLandPlotRepository) UpdateColumns(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.LandPlot{}).Where("id = ?", id).Updates(updates).Error
}
