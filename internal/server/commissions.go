package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	commissiondomain "github.com/smallbiznis/contractledger/internal/commission/domain"
)

func (s *Server) CreateSalesperson(c *gin.Context) {
	var req commissiondomain.CreateSalespersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.salespersonSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateSalesperson(c *gin.Context) {
	var req commissiondomain.UpdateSalespersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.salespersonSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSalesperson(c *gin.Context) {
	resp, err := s.salespersonSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSalespeople(c *gin.Context) {
	var query commissiondomain.ListSalespeopleRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	query.Name = strings.TrimSpace(query.Name)

	resp, err := s.salespersonSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Salespeople, "page_info": resp.PageInfo})
}

func (s *Server) CreateCommission(c *gin.Context) {
	var req commissiondomain.CreateCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.RequestedBy = actorID(c)

	resp, err := s.commissionSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ApproveCommission(c *gin.Context) {
	resp, err := s.commissionSvc.Approve(c.Request.Context(), commissiondomain.ApproveRequest{
		ID:         strings.TrimSpace(c.Param("id")),
		ApproverID: actorID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RejectCommission(c *gin.Context) {
	var req commissiondomain.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))
	req.RejectedBy = actorID(c)

	resp, err := s.commissionSvc.Reject(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RevertCommission(c *gin.Context) {
	resp, err := s.commissionSvc.Revert(c.Request.Context(), commissiondomain.RevertRequest{
		ID:      strings.TrimSpace(c.Param("id")),
		ActorID: actorID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCommission(c *gin.Context) {
	resp, err := s.commissionSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCommissions(c *gin.Context) {
	var query commissiondomain.ListCommissionRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	query.SalespersonID = strings.TrimSpace(query.SalespersonID)
	query.Status = strings.TrimSpace(query.Status)

	resp, err := s.commissionSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Requests, "page_info": resp.PageInfo})
}
