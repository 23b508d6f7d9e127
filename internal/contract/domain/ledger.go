package domain

import (
	"fmt"
	"time"

	installmentdomain "github.com/smallbiznis/contractledger/internal/installment/domain"
	ledgerdomain "github.com/smallbiznis/contractledger/internal/ledger/domain"
	"gorm.io/datatypes"
)

// LedgerEntry derives the receivable or payable for inst. Counterparty,
// category, cost center, bank account and payment method come from the
// contract; the caller decides the source tag and the dates.
func (c Contract) LedgerEntry(inst installmentdomain.Installment, sourceType ledgerdomain.SourceType, due, competency time.Time) *ledgerdomain.LedgerEntry {
	contractID := c.ID
	category := c.AccountCategoryID
	bank := c.BankAccountID

	return &ledgerdomain.LedgerEntry{
		OrgID:             c.OrgID,
		Direction:         c.Kind.Direction(),
		SourceType:        sourceType,
		SourceID:          inst.ID,
		ContractID:        &contractID,
		Amount:            inst.Amount,
		DueDate:           due,
		CompetencyDate:    competency,
		ClientID:          c.ClientID,
		SupplierID:        c.SupplierID,
		AccountCategoryID: &category,
		CostCenterID:      c.CostCenterID,
		BankAccountID:     &bank,
		PaymentMethod:     c.PaymentMethod,
		Description:       installmentDescription(c, inst),
		Metadata: datatypes.JSONMap{
			"contract_version": c.Version,
			"sequence":         inst.Sequence,
			"installment_kind": string(inst.Kind),
		},
	}
}

func installmentDescription(c Contract, inst installmentdomain.Installment) string {
	label := "Installment"
	if inst.Kind == installmentdomain.KindGoLive {
		label = "Go-live installment"
	}
	if inst.Description != "" {
		return fmt.Sprintf("%s %d: %s (contract %s)", label, inst.Sequence, inst.Description, c.ID)
	}
	return fmt.Sprintf("%s %d (contract %s)", label, inst.Sequence, c.ID)
}
