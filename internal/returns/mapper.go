package returns

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cis-commerce/occ-returns/internal/occ"
)

// RecordError reports a return record missing a field the flattened output
// requires. The record is skipped and the batch continues.
type RecordError struct {
	Code  int64
	Field string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("return %d: missing %s", e.Code, e.Field)
}

// SimplifiedReturn is the flattened projection sent to the webhook, one per
// pending return: summary fields joined with fields pulled from the probe
// detail record.
type SimplifiedReturn struct {
	Code           int64           `json:"code"`
	UID            string          `json:"uid"`
	ApproverID     string          `json:"approver_id,omitempty"`
	Comments       []string        `json:"comments"`
	RefundMethod   string          `json:"refund_method,omitempty"`
	RefundStatus   string          `json:"refund_status,omitempty"`
	ReturnValue    decimal.Decimal `json:"return_value"`
	Reason         string          `json:"reason,omitempty"`
	Channel        string          `json:"channel,omitempty"`
	WarehouseNames []string        `json:"warehouse_names"`
	SKUAndQuantity []string        `json:"sku_and_quantity"`
	GroupNumber    string          `json:"group_number,omitempty"`
	OrderCode      string          `json:"order_code,omitempty"`
	OrderType      string          `json:"order_type,omitempty"`
}

// Mapper flattens return summaries and their probe details into simplified
// output records.
type Mapper struct{}

// NewMapper constructs a Mapper instance.
func NewMapper() *Mapper { return &Mapper{} }

// Simplify builds one SimplifiedReturn per pending code, joining the summary
// record with the detail whose rma echoes the return code. Records missing
// required fields are reported as *RecordError and skipped; the rest of the
// batch is unaffected.
func (m *Mapper) Simplify(summaries []occ.Return, details []*occ.Return, pending []int64) ([]SimplifiedReturn, []error) {
	byCode := make(map[int64]*occ.Return, len(summaries))
	for i := range summaries {
		byCode[summaries[i].Code] = &summaries[i]
	}
	byRMA := make(map[int64]*occ.Return, len(details))
	for _, d := range details {
		if d != nil {
			byRMA[d.RMA] = d
		}
	}

	simplified := make([]SimplifiedReturn, 0, len(pending))
	var errs []error
	for _, code := range pending {
		summary, ok := byCode[code]
		if !ok {
			errs = append(errs, &RecordError{Code: code, Field: "summary record"})
			continue
		}
		rec, err := m.simplifyOne(summary, byRMA[code])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		simplified = append(simplified, rec)
	}
	return simplified, errs
}

// simplifyOne flattens a single summary/detail pair. detail may be nil when
// no probe response matched the return code.
func (m *Mapper) simplifyOne(summary, detail *occ.Return) (SimplifiedReturn, error) {
	if summary.Order == nil || summary.Order.Account == nil || summary.Order.Account.UID == "" {
		return SimplifiedReturn{}, &RecordError{Code: summary.Code, Field: "order.account.uid"}
	}
	if detail == nil {
		return SimplifiedReturn{}, &RecordError{Code: summary.Code, Field: "detail record (rma)"}
	}

	comments := make([]string, 0, len(summary.CisComments))
	for _, c := range summary.CisComments {
		if c.Text != "" {
			comments = append(comments, c.Text)
		}
	}

	lines := make([]string, 0, len(detail.Entries))
	for _, e := range detail.Entries {
		lines = append(lines, fmt.Sprintf("%s %d", e.ProductSku, e.ExpectedQuantity))
	}

	warehouses := detail.Warehouses
	if len(warehouses) == 0 {
		warehouses = summary.Warehouses
	}
	names := make([]string, 0, len(warehouses))
	for _, w := range warehouses {
		if w.Name != "" {
			names = append(names, w.Name)
		}
	}

	return SimplifiedReturn{
		Code:           summary.Code,
		UID:            summary.Order.Account.UID,
		ApproverID:     summary.ReturnAbo,
		Comments:       comments,
		RefundMethod:   summary.RefundMethod,
		RefundStatus:   summary.RefundStatus,
		ReturnValue:    summary.ReturnValue,
		Reason:         summary.ReturnRequestReason,
		Channel:        summary.Channel,
		WarehouseNames: names,
		SKUAndQuantity: lines,
		GroupNumber:    summary.GroupNumber,
		OrderCode:      summary.Order.Code,
		OrderType:      summary.Order.Type,
	}, nil
}
