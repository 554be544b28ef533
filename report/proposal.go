package report

import (
	"bytes"
	"fmt"
	"html/template"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/quotedeck/quotedeck/internal/customers"
	"github.com/quotedeck/quotedeck/internal/payments"
	"github.com/quotedeck/quotedeck/internal/proposals"
)

// ProposalDocument bundles everything the export renders.
type ProposalDocument struct {
	Proposal *proposals.ProposalView
	Customer *customers.Customer
	Schedule *payments.ScheduleView
}

// Renderer turns a proposal into customer-facing HTML.
type Renderer struct {
	tmpl    *template.Template
	printer *message.Printer
}

// NewRenderer builds the renderer with the embedded template.
func NewRenderer() (*Renderer, error) {
	printer := message.NewPrinter(language.English)
	unit := currency.EUR

	funcs := template.FuncMap{
		"money": func(v float64) string {
			return printer.Sprintf("%v", currency.Symbol(unit.Amount(v)))
		},
		"pct": func(v float64) string {
			return fmt.Sprintf("%.2f%%", v)
		},
	}

	tmpl, err := template.New("proposal").Funcs(funcs).Parse(proposalTemplate)
	if err != nil {
		return nil, fmt.Errorf("report: parse template: %w", err)
	}
	return &Renderer{tmpl: tmpl, printer: printer}, nil
}

// RenderProposal produces the HTML body passed to the PDF converter.
func (r *Renderer) RenderProposal(doc ProposalDocument) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("report: render proposal %s: %w", doc.Proposal.Number, err)
	}
	return buf.Bytes(), nil
}

const proposalTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #1a1a1a; margin: 40px; }
  h1 { font-size: 22px; margin-bottom: 0; }
  h2 { font-size: 14px; border-bottom: 1px solid #ccc; padding-bottom: 4px; margin-top: 28px; }
  table { width: 100%; border-collapse: collapse; margin-top: 8px; }
  th { text-align: left; border-bottom: 2px solid #333; padding: 6px 4px; font-size: 11px; text-transform: uppercase; }
  td { border-bottom: 1px solid #e0e0e0; padding: 6px 4px; }
  td.num, th.num { text-align: right; }
  .meta { color: #555; margin-top: 4px; }
  .total-row td { font-weight: bold; border-top: 2px solid #333; border-bottom: none; }
</style>
</head>
<body>
  <h1>Proposal {{.Proposal.Number}}</h1>
  <p class="meta">
    {{.Customer.Name}}{{if .Customer.Address}} &middot; {{.Customer.Address}}{{end}}<br>
    Status: {{.Proposal.Status}} &middot; Date: {{.Proposal.CreatedAt.Format "2 January 2006"}}
  </p>

  {{if .Proposal.Items}}
  <h2>Products</h2>
  <table>
    <tr><th>Item</th><th class="num">Qty</th><th class="num">Unit Price</th><th class="num">Amount</th></tr>
    {{range .Proposal.Items}}
    <tr>
      <td>{{.Name}}</td>
      <td class="num">{{.Quantity}}</td>
      <td class="num">{{money .UnitPrice}}</td>
      <td class="num">{{money .Amount}}</td>
    </tr>
    {{end}}
  </table>
  {{end}}

  {{if .Proposal.Engineering}}
  <h2>Engineering</h2>
  <table>
    <tr><th>Description</th><th class="num">Days</th><th class="num">Daily Rate</th><th class="num">Amount</th></tr>
    {{range .Proposal.Engineering}}
    <tr>
      <td>{{.Description}}</td>
      <td class="num">{{.Days}}</td>
      <td class="num">{{money .DailyRate}}</td>
      <td class="num">{{money .Amount}}</td>
    </tr>
    {{end}}
  </table>
  {{end}}

  {{if .Proposal.Expenses}}
  <h2>Expenses</h2>
  <table>
    <tr><th>Description</th><th class="num">Amount</th></tr>
    {{range .Proposal.Expenses}}
    <tr><td>{{.Description}}</td><td class="num">{{money .Amount}}</td></tr>
    {{end}}
  </table>
  {{end}}

  {{if .Proposal.Taxes}}
  <h2>Taxes</h2>
  <table>
    <tr><th>Name</th><th class="num">Rate</th><th class="num">Amount</th></tr>
    {{range .Proposal.Taxes}}
    <tr><td>{{.Name}}</td><td class="num">{{pct .Rate}}</td><td class="num">{{money .Amount}}</td></tr>
    {{end}}
  </table>
  {{end}}

  <h2>Totals</h2>
  <table>
    <tr><td>Products</td><td class="num">{{money .Proposal.Summary.SubtotalProducts}}</td></tr>
    <tr><td>Engineering</td><td class="num">{{money .Proposal.Summary.SubtotalEngineering}}</td></tr>
    <tr><td>Expenses</td><td class="num">{{money .Proposal.Summary.SubtotalExpenses}}</td></tr>
    <tr><td>Taxes</td><td class="num">{{money .Proposal.Summary.SubtotalTaxes}}</td></tr>
    <tr class="total-row"><td>Total</td><td class="num">{{money .Proposal.Summary.TotalAmount}}</td></tr>
  </table>

  {{if and .Schedule .Schedule.Terms}}
  <h2>Payment Schedule</h2>
  <table>
    <tr><th>Term</th><th class="num">Percentage</th><th class="num">Amount</th><th>Due</th></tr>
    {{range .Schedule.Terms}}
    <tr>
      <td>{{.Name}}</td>
      <td class="num">{{pct .Percentage}}</td>
      <td class="num">{{money .Amount}}</td>
      <td>{{.Due.Display}}</td>
    </tr>
    {{end}}
  </table>
  {{end}}

  {{if .Proposal.Notes}}
  <h2>Notes</h2>
  <p>{{.Proposal.Notes}}</p>
  {{end}}
</body>
</html>`
