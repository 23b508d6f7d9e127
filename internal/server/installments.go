package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	installmentdomain "github.com/smallbiznis/contractledger/internal/installment/domain"
)

func (s *Server) GetInstallment(c *gin.Context) {
	resp, err := s.installmentSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CompleteGoLive(c *gin.Context) {
	var req installmentdomain.CompleteGoLiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.InstallmentID = strings.TrimSpace(c.Param("id"))
	req.CompletionDate = strings.TrimSpace(req.CompletionDate)
	req.ActorID = actorID(c)

	resp, err := s.installmentSvc.Complete(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RevertGoLive(c *gin.Context) {
	resp, err := s.installmentSvc.Revert(c.Request.Context(), installmentdomain.TransitionRequest{
		InstallmentID: strings.TrimSpace(c.Param("id")),
		ActorID:       actorID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SettleInstallment(c *gin.Context) {
	resp, err := s.installmentSvc.Settle(c.Request.Context(), installmentdomain.TransitionRequest{
		InstallmentID: strings.TrimSpace(c.Param("id")),
		ActorID:       actorID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
