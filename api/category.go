package api

import (
	"bugie/config"
	"bugie/middleware"
	"bugie/models"
	"bugie/service"

	"github.com/gin-gonic/gin"
)

// CategoryHandler 收支类别管理
type CategoryHandler struct {
	cfg        *config.Config
	categories *service.CategoryService
}

func NewCategoryHandler(cfg *config.Config, categories *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{cfg: cfg, categories: categories}
}

type CategoryCreateRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=50"`
	Type  string `json:"type" binding:"required,oneof=income expense"`
	Icon  string `json:"icon" binding:"omitempty,max=32"`
	Color string `json:"color" binding:"omitempty,max=20"` // 颜色代码，如 #ef4444
	Sort  *int   `json:"sort"`
}

type CategoryUpdateRequest struct {
	Name  string `json:"name" binding:"omitempty,min=1,max=50"`
	Icon  string `json:"icon" binding:"omitempty,max=32"`
	Color string `json:"color" binding:"omitempty,max=20"`
	Sort  *int   `json:"sort"`
}

// Templates 类别模板
// @Summary 默认类别模板
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.CategoryTemplate}
// @Router /api/v1/category-templates [get]
func (h *CategoryHandler) Templates(c *gin.Context) {
	list, err := h.categories.ListTemplates(c.Request.Context())
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	Success(c, list)
}

// List 类别列表
// @Summary 账本类别列表
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Param include_deleted query bool false "包含已删除（所有者）"
// @Success 200 {object} Response{data=[]models.Category}
// @Router /api/v1/ledgers/{id}/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	ledgerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	list, err := h.categories.ListCategories(c.Request.Context(), middleware.GetCurrentAccountID(c), ledgerID, c.Query("include_deleted") == "true")
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	Success(c, list)
}

// Create 创建类别
// @Summary 创建类别（管理员）
// @Tags 类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Param request body CategoryCreateRequest true "类别信息"
// @Success 200 {object} Response{data=models.Category}
// @Router /api/v1/ledgers/{id}/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	ledgerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req CategoryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	cat, err := h.categories.CreateCategory(c.Request.Context(), middleware.GetCurrentAccountID(c), ledgerID, service.CategoryInput{
		Name:  req.Name,
		Type:  models.EntryType(req.Type),
		Icon:  req.Icon,
		Color: req.Color,
		Sort:  req.Sort,
	})
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "创建成功", cat)
}

// Update 更新类别
// @Summary 更新类别（管理员）
// @Tags 类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Param categoryId path string true "类别ID"
// @Param request body CategoryUpdateRequest true "更新的类别信息"
// @Success 200 {object} Response{data=models.Category}
// @Router /api/v1/ledgers/{id}/categories/{categoryId} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	ledgerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	categoryID, ok := uuidParam(c, "categoryId")
	if !ok {
		return
	}
	var req CategoryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	cat, err := h.categories.UpdateCategory(c.Request.Context(), middleware.GetCurrentAccountID(c), ledgerID, categoryID, service.CategoryInput{
		Name:  req.Name,
		Icon:  req.Icon,
		Color: req.Color,
		Sort:  req.Sort,
	})
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "更新成功", cat)
}

// Delete 删除类别
// @Summary 删除类别（管理员，可恢复）
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Param categoryId path string true "类别ID"
// @Success 200 {object} Response
// @Router /api/v1/ledgers/{id}/categories/{categoryId} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	ledgerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	categoryID, ok := uuidParam(c, "categoryId")
	if !ok {
		return
	}
	if err := h.categories.DeleteCategory(c.Request.Context(), middleware.GetCurrentAccountID(c), ledgerID, categoryID); err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

// Restore 恢复类别
// @Summary 恢复已删除的类别（管理员）
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Param categoryId path string true "类别ID"
// @Success 200 {object} Response{data=models.Category}
// @Router /api/v1/ledgers/{id}/categories/{categoryId}/restore [post]
func (h *CategoryHandler) Restore(c *gin.Context) {
	ledgerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	categoryID, ok := uuidParam(c, "categoryId")
	if !ok {
		return
	}
	cat, err := h.categories.RestoreCategory(c.Request.Context(), middleware.GetCurrentAccountID(c), ledgerID, categoryID)
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "恢复成功", cat)
}
