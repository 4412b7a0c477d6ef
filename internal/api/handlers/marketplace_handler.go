package handlers

import (
	"errors"
	"net/http"

	"auction-marketplace/internal/domain"
	"auction-marketplace/internal/services"
	"auction-marketplace/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// userIDHeader carries the authenticated user identity; session mechanics
// live in front of this service.
const userIDHeader = "X-User-ID"

type MarketplaceHandler struct {
	listings   *services.ListingService
	bids       *services.BidService
	closing    *services.ClosingService
	engagement *services.EngagementService
	log        logger.Logger
}

func NewMarketplaceHandler(
	listings *services.ListingService,
	bids *services.BidService,
	closing *services.ClosingService,
	engagement *services.EngagementService,
	log logger.Logger,
) *MarketplaceHandler {
	return &MarketplaceHandler{
		listings:   listings,
		bids:       bids,
		closing:    closing,
		engagement: engagement,
		log:        log,
	}
}

func (h *MarketplaceHandler) Register(g *echo.Group) {
	g.POST("/listings", h.CreateListing)
	g.GET("/listings", h.ListListings)
	g.GET("/listings/:id", h.GetListing)
	g.PATCH("/listings/:id", h.UpdateListing)
	g.POST("/listings/:id/bids", h.PlaceBid)
	g.GET("/listings/:id/bids", h.ListBids)
	g.POST("/listings/:id/close", h.CloseListing)
	g.POST("/listings/:id/questions", h.AskQuestion)
	g.GET("/listings/:id/questions", h.ListQuestions)
	g.POST("/questions/:id/answer", h.AnswerQuestion)
	g.POST("/listings/:id/watch", h.ToggleWatch)
	g.GET("/watchlist", h.Watchlist)
	g.GET("/wins", h.Wins)
	g.POST("/categories", h.CreateCategory)
	g.GET("/categories", h.ListCategories)
}

type CreateListingRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	InitialPrice string `json:"initial_price"`
	Category     string `json:"category"`
	DurationDays int    `json:"duration_days"`
	Public       *bool  `json:"public"`
}

func (h *MarketplaceHandler) CreateListing(c echo.Context) error {
	userID, err := h.requireUser(c)
	if err != nil {
		return err
	}

	var req CreateListingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	price, err := decimal.NewFromString(req.InitialPrice)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("initial_price must be a decimal number"))
	}

	public := true
	if req.Public != nil {
		public = *req.Public
	}

	listing, err := h.listings.CreateListing(c.Request().Context(), userID, services.CreateListingInput{
		Title:        req.Title,
		Description:  req.Description,
		InitialPrice: price,
		CategoryName: req.Category,
		DurationDays: req.DurationDays,
		Public:       public,
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, listing)
}

func (h *MarketplaceHandler) ListListings(c echo.Context) error {
	ctx := c.Request().Context()
	userID := c.Request().Header.Get(userIDHeader)

	if category := c.QueryParam("category"); category != "" {
		listings, err := h.listings.ByCategory(ctx, category)
		if err != nil {
			return h.respondError(c, err)
		}
		return c.JSON(http.StatusOK, listings)
	}

	listings, err := h.listings.Search(ctx, c.QueryParam("q"), userID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, listings)
}

func (h *MarketplaceHandler) GetListing(c echo.Context) error {
	ctx := c.Request().Context()
	listing, err := h.listings.GetListing(ctx, c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}

	current, err := h.listings.CurrentBid(ctx, listing.ID)
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"listing":     listing,
		"current_bid": current,
	})
}

type UpdateListingRequest struct {
	Public *bool `json:"public"`
}

func (h *MarketplaceHandler) UpdateListing(c echo.Context) error {
	userID, err := h.requireUser(c)
	if err != nil {
		return err
	}

	var req UpdateListingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}
	if req.Public == nil {
		return c.JSON(http.StatusBadRequest, errorBody("public is required"))
	}

	listing, err := h.listings.SetVisibility(c.Request().Context(), c.Param("id"), userID, *req.Public)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, listing)
}

type PlaceBidRequest struct {
	Value string `json:"value"`
}

func (h *MarketplaceHandler) PlaceBid(c echo.Context) error {
	userID, err := h.requireUser(c)
	if err != nil {
		return err
	}

	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("value must be a decimal number"))
	}

	bid, err := h.bids.PlaceBid(c.Request().Context(), c.Param("id"), userID, value)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, bid)
}

func (h *MarketplaceHandler) ListBids(c echo.Context) error {
	bids, err := h.listings.ListBids(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, bids)
}

func (h *MarketplaceHandler) CloseListing(c echo.Context) error {
	userID, err := h.requireUser(c)
	if err != nil {
		return err
	}

	listing, err := h.closing.Close(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, listing)
}

type BodyRequest struct {
	Body string `json:"body"`
}

func (h *MarketplaceHandler) AskQuestion(c echo.Context) error {
	userID, err := h.requireUser(c)
	if err != nil {
		return err
	}

	var req BodyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	question, err := h.engagement.AskQuestion(c.Request().Context(), c.Param("id"), userID, req.Body)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, question)
}

func (h *MarketplaceHandler) ListQuestions(c echo.Context) error {
	questions, err := h.engagement.ListQuestions(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, questions)
}

func (h *MarketplaceHandler) AnswerQuestion(c echo.Context) error {
	userID, err := h.requireUser(c)
	if err != nil {
		return err
	}

	var req BodyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	answer, err := h.engagement.AnswerQuestion(c.Request().Context(), c.Param("id"), userID, req.Body)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, answer)
}

func (h *MarketplaceHandler) ToggleWatch(c echo.Context) error {
	userID, err := h.requireUser(c)
	if err != nil {
		return err
	}

	watching, err := h.engagement.ToggleWatch(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"watching": watching})
}

func (h *MarketplaceHandler) Watchlist(c echo.Context) error {
	userID, err := h.requireUser(c)
	if err != nil {
		return err
	}

	listings, err := h.engagement.Watchlist(c.Request().Context(), userID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, listings)
}

func (h *MarketplaceHandler) Wins(c echo.Context) error {
	userID, err := h.requireUser(c)
	if err != nil {
		return err
	}

	listings, err := h.listings.Wins(c.Request().Context(), userID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, listings)
}

type CreateCategoryRequest struct {
	Name string `json:"name"`
}

func (h *MarketplaceHandler) CreateCategory(c echo.Context) error {
	if _, err := h.requireUser(c); err != nil {
		return err
	}

	var req CreateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	category, err := h.listings.CreateCategory(c.Request().Context(), req.Name)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, category)
}

func (h *MarketplaceHandler) ListCategories(c echo.Context) error {
	categories, err := h.listings.ListCategories(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, categories)
}

func (h *MarketplaceHandler) requireUser(c echo.Context) (string, error) {
	userID := c.Request().Header.Get(userIDHeader)
	if userID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return userID, nil
}

// respondError maps the business error taxonomy onto HTTP status codes.
func (h *MarketplaceHandler) respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return c.JSON(http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, domain.ErrPermissionDenied):
		return c.JSON(http.StatusForbidden, errorBody(err.Error()))
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, domain.ErrAuctionClosed),
		errors.Is(err, domain.ErrBidTooLow),
		errors.Is(err, domain.ErrAlreadyAnswered):
		return c.JSON(http.StatusConflict, errorBody(err.Error()))
	default:
		h.log.Error("Request failed", "path", c.Path(), "error", err)
		return c.JSON(http.StatusInternalServerError, errorBody("internal error"))
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
