package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paisabook/paisabook-api/internal/middleware"
	"github.com/paisabook/paisabook-api/internal/services"
)

type CustomerHandler struct {
	customerService *services.CustomerService
}

func NewCustomerHandler(customerService *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

// @Summary Create Customer
// @Tags Customers
// @Accept json
// @Produce json
// @Param request body services.CustomerInput true "Customer"
// @Success 201 {object} models.CustomerResponse
// @Security BearerAuth
// @Router /customers [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	var in services.CustomerInput
	if err := BindNestedOrFlat(c, "customer", &in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.Name == "" || in.Phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and phone are required"})
		return
	}

	customer, err := h.customerService.CreateCustomer(c.Request.Context(), &in, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"customer": customer.ToResponse()})
}

// @Summary List Customers
// @Tags Customers
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /customers [get]
func (h *CustomerHandler) Index(c *gin.Context) {
	query := listQueryFromContext(c)

	customers, total, err := h.customerService.ListCustomers(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]interface{}, 0, len(customers))
	for i := range customers {
		responses = append(responses, customers[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"customers":  responses,
		"pagination": paginationMeta(query, total),
	})
}

// @Summary Get Customer
// @Description Customer with loans and aggregate position
// @Tags Customers
// @Produce json
// @Param customer_id path int true "Customer ID"
// @Success 200 {object} services.CustomerDetail
// @Security BearerAuth
// @Router /customers/{customer_id} [get]
func (h *CustomerHandler) Show(c *gin.Context) {
	id, ok := parseID(c, "customer_id")
	if !ok {
		return
	}

	detail, err := h.customerService.GetCustomerDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// @Summary Update Customer
// @Tags Customers
// @Accept json
// @Produce json
// @Param customer_id path int true "Customer ID"
// @Param request body services.CustomerInput true "Customer"
// @Success 200 {object} models.CustomerResponse
// @Security BearerAuth
// @Router /customers/{customer_id} [put]
func (h *CustomerHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "customer_id")
	if !ok {
		return
	}

	var in services.CustomerInput
	if err := BindNestedOrFlat(c, "customer", &in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.Name == "" || in.Phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and phone are required"})
		return
	}

	customer, err := h.customerService.UpdateCustomer(c.Request.Context(), id, &in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"customer": customer.ToResponse()})
}

type DistributeRequest struct {
	AccountID       uint   `json:"account_id" binding:"required"`
	Amount          int64  `json:"amount" binding:"required"`
	TotalReceivable int64  `json:"total_receivable" binding:"required"`
	Remarks         string `json:"remarks"`
}

// @Summary Distribute Corporation
// @Description Hands a corporation amount to a customer outside a loan
// @Tags Customers
// @Accept json
// @Produce json
// @Param customer_id path int true "Customer ID"
// @Param request body DistributeRequest true "Distribution"
// @Success 201 {object} models.TransactionResponse
// @Security BearerAuth
// @Router /customers/{customer_id}/corporation/distribute [post]
func (h *CustomerHandler) DistributeCorporation(c *gin.Context) {
	id, ok := parseID(c, "customer_id")
	if !ok {
		return
	}

	var req DistributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.customerService.DistributeCorporation(c.Request.Context(), id, req.AccountID, req.Amount, req.TotalReceivable, req.Remarks, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": tx.ToResponse()})
}

type CollectCorporationRequest struct {
	AccountID uint   `json:"account_id" binding:"required"`
	Amount    int64  `json:"amount" binding:"required"`
	Remarks   string `json:"remarks"`
}

// @Summary Collect Corporation
// @Description Books a corporation repayment against the customer's receivable
// @Tags Customers
// @Accept json
// @Produce json
// @Param customer_id path int true "Customer ID"
// @Param request body CollectCorporationRequest true "Collection"
// @Success 201 {object} models.TransactionResponse
// @Security BearerAuth
// @Router /customers/{customer_id}/corporation/collect [post]
func (h *CustomerHandler) CollectCorporation(c *gin.Context) {
	id, ok := parseID(c, "customer_id")
	if !ok {
		return
	}

	var req CollectCorporationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.customerService.CollectCorporation(c.Request.Context(), id, req.AccountID, req.Amount, req.Remarks, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": tx.ToResponse()})
}
