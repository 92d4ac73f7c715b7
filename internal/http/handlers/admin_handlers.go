package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/domain"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/http/response"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/repo/postgres"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/auth"
)

// AdminHandlers is the trusted administrative surface: product and content
// management plus a read view of recent users. The conversation core itself
// never writes through these paths.
type AdminHandlers struct {
	products  postgres.ProductsRepo
	content   postgres.ContentRepo
	users     postgres.UsersRepo
	orders    postgres.OrdersRepo
	jwtSecret string
	validate  *validator.Validate
}

func NewAdminHandlers(
	products postgres.ProductsRepo,
	content postgres.ContentRepo,
	users postgres.UsersRepo,
	orders postgres.OrdersRepo,
	jwtSecret string,
) *AdminHandlers {
	return &AdminHandlers{
		products:  products,
		content:   content,
		users:     users,
		orders:    orders,
		jwtSecret: jwtSecret,
		validate:  validator.New(),
	}
}

// RequireAdmin checks the bearer token and the admin role.
func (h *AdminHandlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			response.Unauthorized(w, "missing bearer token")
			return
		}

		claims, err := auth.Parse(token, h.jwtSecret)
		if err != nil {
			response.Unauthorized(w, "invalid token")
			return
		}
		if claims.Role != "admin" {
			response.Forbidden(w, "admin role required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

type createProductReq struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description"`
	Price       int64   `json:"price" validate:"required,gt=0"`
	Currency    string  `json:"currency" validate:"required,len=3"`
	PhotoURL    *string `json:"photo_url"`
}

func (h *AdminHandlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	product, err := h.products.Create(r.Context(), req.Title, req.Description, req.Price, strings.ToUpper(req.Currency), req.PhotoURL)
	if err != nil {
		response.InternalError(w, "failed to create product")
		return
	}
	response.WriteJSON(w, http.StatusCreated, product)
}

func (h *AdminHandlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListActive(r.Context())
	if err != nil {
		response.InternalError(w, "failed to list products")
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	response.WriteJSON(w, http.StatusOK, products)
}

type setActiveReq struct {
	Active bool `json:"active"`
}

func (h *AdminHandlers) SetProductActive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid product id")
		return
	}
	var req setActiveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if err := h.products.SetActive(r.Context(), id, req.Active); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "product not found")
			return
		}
		response.InternalError(w, "failed to update product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setTextReq struct {
	Text string `json:"text" validate:"required"`
}

func (h *AdminHandlers) SetSectionText(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req setTextReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.content.SetText(r.Context(), key, req.Text); err != nil {
		response.InternalError(w, "failed to save section text")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addPhotoReq struct {
	FileID    string `json:"file_id" validate:"required"`
	SortOrder int    `json:"sort_order"`
}

func (h *AdminHandlers) AddSectionPhoto(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req addPhotoReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.content.AddPhoto(r.Context(), key, req.FileID, req.SortOrder); err != nil {
		response.InternalError(w, "failed to add photo")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *AdminHandlers) ListSectionPhotos(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	photos, err := h.content.ListPhotos(r.Context(), key)
	if err != nil {
		response.InternalError(w, "failed to list photos")
		return
	}
	if photos == nil {
		photos = []string{}
	}
	response.WriteJSON(w, http.StatusOK, photos)
}

func (h *AdminHandlers) ClearSectionPhotos(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	deleted, err := h.content.ClearPhotos(r.Context(), key)
	if err != nil {
		response.InternalError(w, "failed to clear photos")
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (h *AdminHandlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid order id")
		return
	}

	order, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "order not found")
			return
		}
		response.InternalError(w, "failed to load order")
		return
	}
	response.WriteJSON(w, http.StatusOK, order)
}

func (h *AdminHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	users, err := h.users.ListRecent(r.Context(), limit)
	if err != nil {
		response.InternalError(w, "failed to list users")
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	response.WriteJSON(w, http.StatusOK, users)
}
