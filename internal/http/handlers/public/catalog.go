package public

import (
	"strconv"
	"strings"

	"github.com/sylvan-next/internal/http/response"
	"github.com/sylvan-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetTrees 获取可认养树木列表
func (h *Handler) GetTrees(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	trees, total, err := h.TreeRepo.List(repository.TreeListFilter{
		Page:          page,
		PageSize:      pageSize,
		Species:       strings.TrimSpace(c.Query("species")),
		Search:        strings.TrimSpace(c.Query("search")),
		OnlyAvailable: c.Query("only_available") == "true",
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.tree_fetch_failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, trees, pagination)
}

// GetTree 获取树木详情
func (h *Handler) GetTree(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.id_invalid", nil)
		return
	}

	tree, err := h.TreeRepo.GetByID(uint(id))
	if err != nil {
		respondError(c, response.CodeInternal, "error.tree_fetch_failed", err)
		return
	}
	if tree == nil {
		respondError(c, response.CodeNotFound, "error.tree_not_found", nil)
		return
	}

	response.Success(c, tree)
}

// GetPlots 获取可认养地块列表
func (h *Handler) GetPlots(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	plots, total, err := h.PlotRepo.List(repository.LandPlotListFilter{
		Page:          page,
		PageSize:      pageSize,
		Region:        strings.TrimSpace(c.Query("region")),
		Search:        strings.TrimSpace(c.Query("search")),
		OnlyAvailable: c.Query("only_available") == "true",
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.plot_fetch_failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, plots, pagination)
}

// GetPlot 获取地块详情
func (h *Handler) GetPlot(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.id_invalid", nil)
		return
	}

	plot, err := h.PlotRepo.GetByID(uint(id))
	if err != nil {
		respondError(c, response.CodeInternal, "error.plot_fetch_failed", err)
		return
	}
	if plot == nil {
		respondError(c, response.CodeNotFound, "error.plot_not_found", nil)
		return
	}

	response.Success(c, plot)
}

// GetProducts 获取商品列表
func (h *Handler) GetProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	products, total, err := h.ProductRepo.List(repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		Search:     strings.TrimSpace(c.Query("search")),
		OnlyActive: true,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, products, pagination)
}

// GetProduct 获取商品详情
func (h *Handler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.id_invalid", nil)
		return
	}

	product, err := h.ProductRepo.GetByID(uint(id))
	if err != nil {
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return
	}
	if product == nil {
		respondError(c, response.CodeNotFound, "error.product_not_found", nil)
		return
	}

	response.Success(c, product)
}
