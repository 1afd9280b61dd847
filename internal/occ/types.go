package occ

import (
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
)

//
// ────────────────────────────────────────────────
//   Token
// ────────────────────────────────────────────────
//

// Token is the credential payload issued by the OCC token endpoint and cached
// locally between runs.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
	Scope       string `json:"scope,omitempty"`
}

// Authorization returns the Authorization header value for this token.
func (t *Token) Authorization() string {
	return t.TokenType + " " + t.AccessToken
}

//
// ────────────────────────────────────────────────
//   Returns list / detail
// ────────────────────────────────────────────────
//

// ReturnsPage is the decoded response of the returns-list endpoint. Raw keeps
// the upstream body verbatim so it can be forwarded downstream unmodified.
type ReturnsPage struct {
	Returns    []Return    `json:"returns"`
	Pagination *Pagination `json:"pagination,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// Pagination describes the returns-list page window.
type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	PageSize     int `json:"pageSize"`
	TotalPages   int `json:"totalPages"`
	TotalResults int `json:"totalResults"`
}

// Return is a customer product-return record as OCC reports it. The same
// shape serves both the list summary and the detail response of the comment
// endpoints; a detail response additionally carries rma echoing the return
// code it belongs to. Only the fields this job touches are modeled; Raw keeps
// the full upstream record for passthrough.
type Return struct {
	Code                int64           `json:"code"`
	RMA                 int64           `json:"rma,omitempty"`
	Status              string          `json:"status,omitempty"`
	StatusDisplay       string          `json:"statusDisplay,omitempty"`
	ReturnAbo           string          `json:"returnAbo,omitempty"`
	GroupNumber         string          `json:"groupNumber,omitempty"`
	Channel             string          `json:"channel,omitempty"`
	RefundMethod        string          `json:"refundMethod,omitempty"`
	RefundStatus        string          `json:"refundStatus,omitempty"`
	ReturnValue         decimal.Decimal `json:"returnValue"`
	ReturnRequestReason string          `json:"returnRequestReason,omitempty"`
	CisComments         []Comment       `json:"cisComments,omitempty"`
	Order               *Order          `json:"order,omitempty"`
	Entries             []ReturnEntry   `json:"entries,omitempty"`
	Warehouses          []Warehouse     `json:"warehouses,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// Order references the order a return was raised against.
type Order struct {
	Code    string   `json:"code,omitempty"`
	Type    string   `json:"type,omitempty"`
	Account *Account `json:"account,omitempty"`
}

// Account identifies the customer account behind an order.
type Account struct {
	UID string `json:"uid,omitempty"`
}

// Comment is a CIS comment attached to a return.
type Comment struct {
	Code   int64   `json:"code"`
	Text   string  `json:"text,omitempty"`
	Author *Author `json:"author,omitempty"`
}

// Author names the identity that created a comment.
type Author struct {
	Name string `json:"name,omitempty"`
}

// ReturnEntry is one product line of a return.
type ReturnEntry struct {
	ProductSku       string `json:"productSku,omitempty"`
	ExpectedQuantity int64  `json:"expectedQuantity,omitempty"`
	ReceivedQuantity int64  `json:"receivedQuantity,omitempty"`
}

// Warehouse names the warehouse a return line is routed to.
type Warehouse struct {
	Name string `json:"name,omitempty"`
}

//
// ────────────────────────────────────────────────
//   Request types
// ────────────────────────────────────────────────
//

// ListRequest carries every parameter of the returns-list operation. Optional
// numeric fields are pointers: nil means the parameter is omitted entirely,
// never defaulted to zero by the client.
type ListRequest struct {
	DateFrom    string
	DateTo      string
	PageSize    *int
	CurrentPage *int
	Fields      string
	Sort        string
	ContentType string
	Country     string
	Channel     string
}

// query serializes the query-string portion, dropping absent values.
func (r ListRequest) query() url.Values {
	v := url.Values{}
	if r.Fields != "" {
		v.Set("fields", r.Fields)
	}
	if r.Sort != "" {
		v.Set("sort", r.Sort)
	}
	if r.PageSize != nil {
		v.Set("pageSize", strconv.Itoa(*r.PageSize))
	}
	if r.CurrentPage != nil {
		v.Set("currentPage", strconv.Itoa(*r.CurrentPage))
	}
	return v
}

// listBody is the POST body of the returns-list endpoint. Absent values are
// dropped, never defaulted.
type listBody struct {
	CountryISOCode string `json:"countryIsoCode,omitempty"`
	Channel        string `json:"channel,omitempty"`
	DateFrom       string `json:"dateFrom,omitempty"`
	DateTo         string `json:"dateTo,omitempty"`
}

// commentBody is the POST body of the comment-create endpoint.
type commentBody struct {
	Comment string `json:"comment"`
}
