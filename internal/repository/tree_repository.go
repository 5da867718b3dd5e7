package repository

import (
	"errors"

	"github.com/sylvan-next/internal/constants"
	"github.com/sylvan-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TreeRepository 树木数据访问接口
type TreeRepository interface {
	List(filter TreeListFilter) ([]models.Tree, int64, error)
	GetByID(id uint) (*models.Tree, error)
	GetByIDForUpdate(id uint) (*models.Tree, error)
	Create(tree *models.Tree) error
	Update(tree *models.Tree) error
	UpdateColumns(id uint, updates map[string]interface{}) error
	WithTx(tx *gorm.DB) TreeRepository
}

// GormTreeRepository GORM 实现
type GormTreeRepository struct {
	db *gorm.DB
}

// NewTreeRepository 创建树木仓库
func NewTreeRepository(db *gorm.DB) *GormTreeRepository {
	return &GormTreeRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTreeRepository) WithTx(tx *gorm.DB) TreeRepository {
	if tx == nil {
		return r
	}
	return &GormTreeRepository{db: tx}
}

// List 树木列表
func (r *GormTreeRepository) List(filter TreeListFilter) ([]models.Tree, int64, error) {
	var trees []models.Tree

	query := r.db.Model(&models.Tree{})
	if filter.OnlyAvailable {
		query = query.Where("status = ?", constants.TreeStatusAvailable)
	}
	if filter.Species != "" {
		query = query.Where("species = ?", filter.Species)
	}
	if filter.Search != "" {
		condition, argCount := buildLikeCondition(r.db, []string{"name", "species", "location"})
		query = query.Where(condition, repeatLikeArgs("%"+filter.Search+"%", argCount)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	if err := query.Order("id DESC").Find(&trees).Error; err != nil {
		return nil, 0, err
	}
	return trees, total, nil
}

// GetByID 根据 ID 获取树木
func (r *GormTreeRepository) GetByID(id uint) (*models.Tree, error) {
	var tree models.Tree
	if err := r.db.First(&tree, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tree, nil
}

// GetByIDForUpdate 根据 ID 获取树木并加行锁（事务内使用）
func (r *GormTreeRepository) GetByIDForUpdate(id uint) (*models.Tree, error) {
	var tree models.Tree
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&tree, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tree, nil
}

// Create 创建树木
func (r *GormTreeRepository) Create(tree *models.Tree) error {
	return r.db.Create(tree).Error
}

// Update 更新树木
func (r *GormTreeRepository) Update(tree *models.Tree) error {
	return r.db.Save(tree).Error
}

// UpdateColumns 按列更新树木
func (r *GormTreeRepository) UpdateColumns(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Tree{}).Where("id = ?", id).Updates(updates).Error
}
