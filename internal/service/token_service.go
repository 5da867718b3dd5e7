package service

import (
	"fmt"
	"time"

	"github.com/sylvan-next/internal/constants"
	"github.com/sylvan-next/internal/models"
	"github.com/sylvan-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TokenService 积分账户服务
type TokenService struct {
	tokenRepo repository.TokenRepository
}

// NewTokenService 创建积分服务
func NewTokenService(tokenRepo repository.TokenRepository) *TokenService {
	return &TokenService{tokenRepo: tokenRepo}
}

// buildOrderTokenReference 构造订单积分流水的幂等引用号
func buildOrderTokenReference(orderID uint, txnType string) string {
	return fmt.Sprintf("order:%d:%s", orderID, txnType)
}

// GetAccount 获取积分账户（不存在时惰性创建零余额账户）
func (s *TokenService) GetAccount(userID uint) (*models.TokenAccount, error) {
	if userID == 0 {
		return nil, ErrAccountNotFound
	}
	account, err := s.tokenRepo.GetAccountByUserID(userID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	account = &models.TokenAccount{
		UserID:  userID,
		Balance: models.NewMoneyFromDecimal(decimal.Zero),
	}
	if err := s.tokenRepo.CreateAccount(account); err != nil {
		return nil, err
	}
	return account, nil
}

// ListTransactions 积分流水列表
func (s *TokenService) ListTransactions(filter repository.TokenTransactionListFilter) ([]models.TokenTransaction, int64, error) {
	return s.tokenRepo.ListTransactions(filter)
}

// ensureAccountForUpdate 加锁获取账户，不存在时先创建再加锁
func (s *TokenService) ensureAccountForUpdate(repo *repository.GormTokenRepository, userID uint, now time.Time) (*models.TokenAccount, error) {
	account, err := repo.GetAccountByUserIDForUpdate(userID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	account = &models.TokenAccount{
		UserID:    userID,
		Balance:   models.NewMoneyFromDecimal(decimal.Zero),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateAccount(account); err != nil {
		return nil, err
	}
	return repo.GetAccountByUserIDForUpdate(userID)
}

// changeBalance 在事务内变更余额并写入流水。
// amount 带符号；引用号相同的重复调用直接返回已有流水（幂等）。
func (s *TokenService) changeBalance(tx *gorm.DB, userID uint, amount decimal.Decimal, txnType, reference, remark string, orderID *uint) (*models.TokenTransaction, error) {
	if tx == nil || userID == 0 {
		return nil, ErrAccountNotFound
	}
	amount = amount.Round(2)
	if amount.IsZero() {
		return nil, ErrInvalidAmount
	}

	repo := s.tokenRepo.WithTx(tx)

	existing, err := repo.GetTransactionByReference(reference)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now()
	account, err := s.ensureAccountForUpdate(repo, userID, now)
	if err != nil {
		return nil, err
	}

	before := account.Balance.Decimal.Round(2)
	after := before.Add(amount).Round(2)
	if after.IsNegative() {
		return nil, ErrTokenInsufficientBalance
	}
	account.Balance = models.NewMoneyFromDecimal(after)
	account.UpdatedAt = now
	if err := repo.UpdateAccount(account); err != nil {
		return nil, err
	}

	txn := &models.TokenTransaction{
		UserID:        userID,
		OrderID:       orderID,
		Type:          txnType,
		Amount:        models.NewMoneyFromDecimal(amount),
		BalanceBefore: models.NewMoneyFromDecimal(before),
		BalanceAfter:  models.NewMoneyFromDecimal(after),
		Reference:     reference,
		Remark:        remark,
		CreatedAt:     now,
	}
	if err := repo.CreateTransaction(txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// DebitForOrder 在事务内为订单扣减积分（幂等，余额不足时整体失败不留部分变更）
func (s *TokenService) DebitForOrder(tx *gorm.DB, userID, orderID uint, amount models.Money) (*models.TokenTransaction, error) {
	if userID == 0 {
		return nil, ErrGuestTokenPayment
	}
	value := amount.Decimal.Round(2)
	if !value.IsPositive() {
		return nil, ErrInvalidAmount
	}
	reference := buildOrderTokenReference(orderID, constants.TokenTxnTypeOrderDebit)
	return s.changeBalance(tx, userID, value.Neg(), constants.TokenTxnTypeOrderDebit, reference, "订单积分支付", &orderID)
}

// RefundForOrder 在事务内退回订单扣减的积分（幂等）
func (s *TokenService) RefundForOrder(tx *gorm.DB, userID, orderID uint, amount models.Money) (*models.TokenTransaction, error) {
	if userID == 0 {
		return nil, ErrGuestTokenPayment
	}
	value := amount.Decimal.Round(2)
	if !value.IsPositive() {
		return nil, ErrInvalidAmount
	}
	reference := buildOrderTokenReference(orderID, constants.TokenTxnTypeOrderRefund)
	return s.changeBalance(tx, userID, value, constants.TokenTxnTypeOrderRefund, reference, "订单积分退回", &orderID)
}

// RewardForAdoption 在事务内发放认养奖励积分（幂等引用号由调用方按认养记录构造）
func (s *TokenService) RewardForAdoption(tx *gorm.DB, userID uint, amount models.Money, reference string, orderID *uint) (*models.TokenTransaction, error) {
	value := amount.Decimal.Round(2)
	if !value.IsPositive() {
		return nil, ErrInvalidAmount
	}
	return s.changeBalance(tx, userID, value, constants.TokenTxnTypeReward, reference, "认养奖励", orderID)
}

// AdminAdjust 管理员调整余额（delta 带符号）
func (s *TokenService) AdminAdjust(userID uint, delta models.Money, remark string) (*models.TokenAccount, *models.TokenTransaction, error) {
	value := delta.Decimal.Round(2)
	if value.IsZero() {
		return nil, nil, ErrInvalidAmount
	}

	var txnResult *models.TokenTransaction
	reference := fmt.Sprintf("adjust:%d:%d", userID, time.Now().UnixNano())
	if err := models.DB.Transaction(func(tx *gorm.DB) error {
		txn, err := s.changeBalance(tx, userID, value, constants.TokenTxnTypeAdminAdjust, reference, remark, nil)
		if err != nil {
			return err
		}
		txnResult = txn
		return nil
	}); err != nil {
		return nil, nil, err
	}

	account, err := s.tokenRepo.GetAccountByUserID(userID)
	if err != nil {
		return nil, nil, err
	}
	return account, txnResult, nil
}
