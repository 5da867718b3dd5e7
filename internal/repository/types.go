package repository

import "time"

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page       int
	PageSize   int
	Search     string
	OnlyActive bool
}

// TreeListFilter 查询树木列表的过滤条件
type TreeListFilter struct {
	Page          int
	PageSize      int
	Species       string
	Search        string
	OnlyAvailable bool
}

// LandPlotListFilter 查询地块列表的过滤条件
type LandPlotListFilter struct {
	Page          int
	PageSize      int
	Region        string
	Search        string
	OnlyAvailable bool
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page          int
	PageSize      int
	UserID        uint
	Status        string
	OrderNo       string
	CustomerEmail string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// AdoptionListFilter 查询认养记录列表的过滤条件
type AdoptionListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	TreeID   uint
	PlotID   uint
	Status   string
}

// DiscountListFilter 查询优惠码列表的过滤条件
type DiscountListFilter struct {
	Page     int
	PageSize int
	Status   string
	UserID   uint
	Code     string
}

// TokenTransactionListFilter 查询积分流水列表的过滤条件
type TokenTransactionListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	Type     string
	OrderID  uint
}
