package httphandler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/carrier"
	domainErr "github.com/Tanmoy095/ShipBroker/services/routing-service/internal/errors"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/models"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/service"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/store"
	"github.com/Tanmoy095/ShipBroker/shared/contracts"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ShipperHeader carries the caller's shipper sequence number. It is set by
// the authenticating gateway in front of this service.
const ShipperHeader = "X-Shipper-Seq"

const orgKey = "organization"

type OrgResolver interface {
	Organization(ctx context.Context, shipperSeqNum int64) (*models.Organization, error)
}

type Quoter interface {
	Quote(ctx context.Context, org *models.Organization, req models.OrderRequest) (models.Rate, error)
	QuoteBatch(ctx context.Context, org *models.Organization, reqs []models.OrderRequest) ([]models.Rate, error)
}

type Router interface {
	Route(ctx context.Context, org *models.Organization, req models.OrderRequest) (service.RouteResult, error)
}

// OrderCreator is the inline service or the workflow starter.
type OrderCreator interface {
	CreateOrder(ctx context.Context, org *models.Organization, req models.OrderRequest) (models.Order, error)
}

type OrderReader interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type UsageReader interface {
	GetUsage(ctx context.Context, shipperSeqNum int64, year, month int) ([]store.UsageRecord, error)
}

type TrackingIntake interface {
	Submit(ctx context.Context, ev contracts.TrackingEvent) error
}

// Deps wires the handler. Tracking and Usage may be nil, which disables
// the webhook and the usage report.
type Deps struct {
	Orgs     OrgResolver
	Quotes   Quoter
	Router   Router
	Creator  OrderCreator
	Reader   OrderReader
	Tracking TrackingIntake
	Usage    UsageReader
	Log      logrus.FieldLogger
}

type Handler struct {
	Deps
}

func NewHandler(d Deps) *Handler {
	return &Handler{Deps: d}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	code, msg := HTTPError(err)
	if code >= http.StatusInternalServerError {
		h.Log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}

// RequireOrganization resolves the tenant from ShipperHeader.
func (h *Handler) RequireOrganization(c *gin.Context) {
	raw := strings.TrimSpace(c.GetHeader(ShipperHeader))
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + ShipperHeader + " header"})
		return
	}
	seq, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || seq <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + ShipperHeader + " header"})
		return
	}
	org, err := h.Orgs.Organization(c.Request.Context(), seq)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Set(orgKey, org)
	c.Next()
}

func organization(c *gin.Context) *models.Organization {
	return c.MustGet(orgKey).(*models.Organization)
}

func (h *Handler) bindOrder(c *gin.Context) (models.OrderRequest, bool) {
	var req models.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return req, false
	}
	return req, true
}

// POST /api/v1/rates
func (h *Handler) QuoteRate(c *gin.Context) {
	req, ok := h.bindOrder(c)
	if !ok {
		return
	}
	rate, err := h.Quotes.Quote(c.Request.Context(), organization(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rate)
}

type batchRequest struct {
	Orders []models.OrderRequest `json:"orders"`
}

// POST /api/v1/rates/batch
func (h *Handler) QuoteRates(c *gin.Context) {
	var body batchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	rates, err := h.Quotes.QuoteBatch(c.Request.Context(), organization(c), body.Orders)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rates": rates})
}

type selectionResponse struct {
	Carrier  *carrier.ID     `json:"carrier"`
	ZipZone  *models.ZipZone `json:"zip_zone"`
	Tobacco  bool            `json:"tobacco"`
	Eligible []carrier.ID    `json:"eligible"`
}

// POST /api/v1/carrier-selection. An unroutable order is a normal answer
// with a null carrier.
func (h *Handler) SelectCarrier(c *gin.Context) {
	req, ok := h.bindOrder(c)
	if !ok {
		return
	}
	route, err := h.Router.Route(c.Request.Context(), organization(c), req)
	if errors.Is(err, domainErr.ErrUnroutable) {
		c.JSON(http.StatusOK, selectionResponse{Eligible: []carrier.ID{}})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, selectionResponse{
		Carrier:  &route.Carrier,
		ZipZone:  &route.ZipZone,
		Tobacco:  route.Tobacco,
		Eligible: route.Eligible,
	})
}

// POST /api/v1/orders
func (h *Handler) CreateOrder(c *gin.Context) {
	req, ok := h.bindOrder(c)
	if !ok {
		return
	}
	order, err := h.Creator.CreateOrder(c.Request.Context(), organization(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GET /api/v1/orders/:id. Orders of other shippers are reported as missing.
func (h *Handler) GetOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	order, err := h.Reader.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if order.ShipperSeqNum != organization(c).ShipperSeqNum {
		h.writeError(c, domainErr.ErrOrderNotFound)
		return
	}
	c.JSON(http.StatusOK, order)
}

// POST /api/v1/webhooks/tracking
func (h *Handler) TrackingWebhook(c *gin.Context) {
	var ev contracts.TrackingEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	if err := h.Tracking.Submit(c.Request.Context(), ev); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// GET /api/v1/usage?year=2026&month=10. Defaults to the current month.
// Totals include flushed labels only.
func (h *Handler) GetUsage(c *gin.Context) {
	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())
	if v := c.Query("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
			return
		}
		year = y
	}
	if v := c.Query("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid month"})
			return
		}
		month = m
	}

	org := organization(c)
	records, err := h.Usage.GetUsage(c.Request.Context(), org.ShipperSeqNum, year, month)
	if err != nil {
		h.writeError(c, err)
		return
	}
	labels := make(map[string]int64, len(records))
	var total int64
	for _, r := range records {
		labels[r.Carrier.String()] = r.Labels
		total += r.Labels
	}
	c.JSON(http.StatusOK, gin.H{
		"shipper_seq_num": org.ShipperSeqNum,
		"year":            year,
		"month":           month,
		"labels":          labels,
		"total":           total,
	})
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
