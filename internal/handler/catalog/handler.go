package catalog

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/pawshop/internal/model/catalog"
	"github.com/zhouzirui/pawshop/pkg/utils"
)

// Handler 商品与宠物目录的HTTP处理器
type Handler struct {
	items catalog.Store
}

// New 创建目录处理器
func New(items catalog.Store) *Handler {
	return &Handler{
		items: items,
	}
}

// RegisterRoutes 注册目录相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/catalog", func(cr chi.Router) {
		cr.Get("/items", h.handleListItems)
		cr.Get("/items/{itemID}", h.handleGetItem)
		cr.Get("/categories", h.handleCategories)
	})
}

// handleListItems 按查询参数过滤列出目录
func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := catalog.Filter{
		Kind:     catalog.Kind(query.Get("kind")),
		Category: query.Get("category"),
		Species:  query.Get("species"),
	}

	var err error
	if filter.Adoptable, err = parseBoolParam(query.Get("adoptable")); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "adoptable must be true or false")
		return
	}
	if filter.InStock, err = parseBoolParam(query.Get("inStock")); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "inStock must be true or false")
		return
	}

	items := h.items.List(filter)
	if items == nil {
		items = []catalog.Item{}
	}
	utils.RespondJSON(w, http.StatusOK, items)
}

// handleGetItem 获取单个条目
func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, ok := h.items.FindByID(chi.URLParam(r, "itemID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "item not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, item)
}

// handleCategories 返回各分类的条目数量
func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.items.CategoryCounts())
}

func parseBoolParam(raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
