package repository

import (
	"errors"
	"strings"

	"github.com/sylvan-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenRepository 积分账户数据访问接口
type TokenRepository interface {
	GetAccountByUserID(userID uint) (*models.TokenAccount, error)
	GetAccountByUserIDForUpdate(userID uint) (*models.TokenAccount, error)
	CreateAccount(account *models.TokenAccount) error
	UpdateAccount(account *models.TokenAccount) error
	CreateTransaction(txn *models.TokenTransaction) error
	GetTransactionByReference(reference string) (*models.TokenTransaction, error)
	ListTransactions(filter TokenTransactionListFilter) ([]models.TokenTransaction, int64, error)
	WithTx(tx *gorm.DB) *GormTokenRepository
}

// GormTokenRepository GORM 积分仓储实现
type GormTokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository 创建积分仓储
func NewTokenRepository(db *gorm.DB) *GormTokenRepository {
	return &GormTokenRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTokenRepository) WithTx(tx *gorm.DB) *GormTokenRepository {
	if tx == nil {
		return r
	}
	return &GormTokenRepository{db: tx}
}

// GetAccountByUserID 按用户ID获取积分账户
func (r *GormTokenRepository) GetAccountByUserID(userID uint) (*models.TokenAccount, error) {
	if userID == 0 {
		return nil, nil
	}
	var account models.TokenAccount
	if err := r.db.Where("user_id = ?", userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetAccountByUserIDForUpdate 按用户ID加锁获取积分账户
func (r *GormTokenRepository) GetAccountByUserIDForUpdate(userID uint) (*models.TokenAccount, error) {
	if userID == 0 {
		return nil, nil
	}
	var account models.TokenAccount
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// CreateAccount 创建积分账户
func (r *GormTokenRepository) CreateAccount(account *models.TokenAccount) error {
	return r.db.Create(account).Error
}

// UpdateAccount 更新积分账户
func (r *GormTokenRepository) UpdateAccount(account *models.TokenAccount) error {
	return r.db.Save(account).Error
}

// CreateTransaction 创建积分流水
func (r *GormTokenRepository) CreateTransaction(txn *models.TokenTransaction) error {
	return r.db.Create(txn).Error
}

// GetTransactionByReference 按引用号获取积分流水（幂等判重）
func (r *GormTokenRepository) GetTransactionByReference(reference string) (*models.TokenTransaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil
	}
	var txn models.TokenTransaction
	if err := r.db.Where("reference = ?", reference).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// ListTransactions 分页查询积分流水
func (r *GormTokenRepository) ListTransactions(filter TokenTransactionListFilter) ([]models.TokenTransaction, int64, error) {
	query := r.db.Model(&models.TokenTransaction{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var txns []models.TokenTransaction
	if err := query.Order("id DESC").Find(&txns).Error; err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}
