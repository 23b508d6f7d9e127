package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	contractdomain "github.com/smallbiznis/contractledger/internal/contract/domain"
)

func (s *Server) CreateContract(c *gin.Context) {
	var req contractdomain.SaveContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ActorID = actorID(c)

	resp, err := s.contractSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) PreviewContract(c *gin.Context) {
	var req contractdomain.SaveContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.contractSvc.Preview(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateContract(c *gin.Context) {
	var req contractdomain.UpdateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))
	req.ActorID = actorID(c)

	resp, err := s.contractSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetContract(c *gin.Context) {
	resp, err := s.contractSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListContracts(c *gin.Context) {
	var query contractdomain.ListContractRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.contractSvc.List(c.Request.Context(), contractdomain.ListContractRequest{
		Pagination:   query.Pagination,
		Kind:         strings.TrimSpace(query.Kind),
		Status:       strings.TrimSpace(query.Status),
		ClientID:     strings.TrimSpace(query.ClientID),
		SupplierID:   strings.TrimSpace(query.SupplierID),
		CostCenterID: strings.TrimSpace(query.CostCenterID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Contracts, "page_info": resp.PageInfo})
}

func (s *Server) SetContractStatus(c *gin.Context) {
	var req contractdomain.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))
	req.ActorID = actorID(c)

	resp, err := s.contractSvc.SetStatus(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListContractInstallments(c *gin.Context) {
	resp, err := s.installmentSvc.ListByContract(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
