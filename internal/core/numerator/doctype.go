package numerator

import "sort"

// DocumentType names a numbered document stream within a branch.
type DocumentType string

const (
	DocInvoice         DocumentType = "invoice"
	DocQuotation       DocumentType = "quotation"
	DocPurchaseOrder   DocumentType = "purchase_order"
	DocPurchaseBill    DocumentType = "purchase_bill"
	DocPaymentIn       DocumentType = "payment_in"
	DocPaymentOut      DocumentType = "payment_out"
	DocSalesReturn     DocumentType = "sales_return"
	DocPurchaseReturn  DocumentType = "purchase_return"
	DocCreditNote      DocumentType = "credit_note"
	DocDebitNote       DocumentType = "debit_note"
	DocDeliveryChallan DocumentType = "delivery_challan"
	DocExpense         DocumentType = "expense"
	DocReceipt         DocumentType = "receipt"
)

// DefaultPadding is the counter width used when a document type has no override.
const DefaultPadding = 4

// TypeDefaults seeds a sequence the first time a document type is numbered.
type TypeDefaults struct {
	Prefix       string
	PaddingZeros int
}

// DefaultTable maps document types to their first-use configuration.
type DefaultTable map[DocumentType]TypeDefaults

// StandardDefaults returns the default table for every supported document type.
func StandardDefaults() DefaultTable {
	return DefaultTable{
		DocInvoice:         {Prefix: "INV-", PaddingZeros: DefaultPadding},
		DocQuotation:       {Prefix: "QUO-", PaddingZeros: DefaultPadding},
		DocPurchaseOrder:   {Prefix: "PO-", PaddingZeros: DefaultPadding},
		DocPurchaseBill:    {Prefix: "PB-", PaddingZeros: DefaultPadding},
		DocPaymentIn:       {Prefix: "PAY-", PaddingZeros: DefaultPadding},
		DocPaymentOut:      {Prefix: "PMO-", PaddingZeros: DefaultPadding},
		DocSalesReturn:     {Prefix: "SR-", PaddingZeros: DefaultPadding},
		DocPurchaseReturn:  {Prefix: "PR-", PaddingZeros: DefaultPadding},
		DocCreditNote:      {Prefix: "CN-", PaddingZeros: DefaultPadding},
		DocDebitNote:       {Prefix: "DN-", PaddingZeros: DefaultPadding},
		DocDeliveryChallan: {Prefix: "DC-", PaddingZeros: DefaultPadding},
		DocExpense:         {Prefix: "EXP-", PaddingZeros: DefaultPadding},
		DocReceipt:         {Prefix: "REC-", PaddingZeros: DefaultPadding},
	}
}

// For returns the defaults of a document type.
func (t DefaultTable) For(dt DocumentType) (TypeDefaults, bool) {
	d, ok := t[dt]
	if ok && d.PaddingZeros == 0 {
		d.PaddingZeros = DefaultPadding
	}
	return d, ok
}

// Types lists the table's document types in stable order.
func (t DefaultTable) Types() []DocumentType {
	out := make([]DocumentType, 0, len(t))
	for dt := range t {
		out = append(out, dt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
