package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/smallbiznis/contractledger/internal/ledger/domain"
)

type listLedgerEntriesQuery struct {
	PageToken    string `form:"page_token"`
	PageSize     int    `form:"page_size"`
	dateRangeQuery
	CostCenterID string `form:"cost_center_id"`
	ContractID   string `form:"contract_id"`
	Direction    string `form:"direction"`
	Status       string `form:"status"`
	SourceType   string `form:"source_type"`
}

func (s *Server) ListLedgerEntries(c *gin.Context) {
	var query listLedgerEntriesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	from, to, err := query.bounds()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.ledgerSvc.List(c.Request.Context(), ledgerdomain.ListEntriesRequest{
		PageToken:    strings.TrimSpace(query.PageToken),
		PageSize:     query.PageSize,
		From:         from,
		To:           to,
		CostCenterID: strings.TrimSpace(query.CostCenterID),
		ContractID:   strings.TrimSpace(query.ContractID),
		Direction:    strings.TrimSpace(query.Direction),
		Status:       strings.TrimSpace(query.Status),
		SourceType:   strings.TrimSpace(query.SourceType),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Entries, "page_info": resp.PageInfo})
}

func (s *Server) GetLedgerEntry(c *gin.Context) {
	resp, err := s.ledgerSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
