package printing

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"

	"github.com/simatecve/reten-facil-sub000/internal/domain/retention"
)

// voucherTemplate lays out the legal SENIAT withholding voucher: the
// identification grid with its numbered boxes, the operations table and the
// totals row, followed by the signature blocks.
var voucherTemplate = template.Must(template.New("voucher").Funcs(template.FuncMap{
	"money": formatMoney,
}).Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="UTF-8">
<title>Comprobante de Retención {{.Voucher.VoucherNumber}}</title>
<style>
  body { font-family: Arial, Helvetica, sans-serif; font-size: 10px; color: #000; }
  h1 { font-size: 13px; text-align: center; margin: 4px 0; }
  .legal { font-size: 8px; text-align: center; margin-bottom: 8px; }
  table { width: 100%; border-collapse: collapse; }
  .grid td { border: 1px solid #000; padding: 3px 5px; vertical-align: top; }
  .grid .label { font-weight: bold; font-size: 8px; }
  .grid .num { font-weight: bold; margin-right: 4px; }
  .items { margin-top: 8px; }
  .items th, .items td { border: 1px solid #000; padding: 2px 3px; font-size: 8px; }
  .items th { background: #e8e8e8; text-align: center; }
  .items td.amount { text-align: right; }
  .items td.center { text-align: center; }
  .totals td { font-weight: bold; background: #f2f2f2; }
  .signatures { margin-top: 40px; width: 100%; }
  .signatures td { width: 50%; text-align: center; padding: 0 20px; }
  .sign-line { border-top: 1px solid #000; margin-top: 45px; padding-top: 3px; font-size: 9px; }
  .logo { max-height: 60px; }
</style>
</head>
<body>
<h1>COMPROBANTE DE RETENCIÓN DEL IMPUESTO AL VALOR AGREGADO</h1>
<p class="legal">Providencia Administrativa SNAT/2015/0049 — Este comprobante se emite en materia de retenciones del IVA</p>

<table class="grid">
  <tr>
    <td><span class="num">0</span><span class="label">Nº DE COMPROBANTE</span><br>{{.Voucher.VoucherNumber}}</td>
    <td><span class="num">1</span><span class="label">FECHA DE EMISIÓN</span><br>{{.IssuedAt}}</td>
    <td><span class="num">4</span><span class="label">PERÍODO FISCAL</span><br>{{.Voucher.FiscalPeriod}}</td>
  </tr>
  <tr>
    <td colspan="2"><span class="num">2</span><span class="label">NOMBRE O RAZÓN SOCIAL DEL AGENTE DE RETENCIÓN</span><br>{{.Voucher.Agent.Name}}</td>
    <td><span class="num">3</span><span class="label">RIF DEL AGENTE DE RETENCIÓN</span><br>{{.Voucher.Agent.RIF}}</td>
  </tr>
  <tr>
    <td colspan="3"><span class="num">5</span><span class="label">DIRECCIÓN FISCAL DEL AGENTE DE RETENCIÓN</span><br>{{.Voucher.Agent.FiscalAddress}}</td>
  </tr>
  <tr>
    <td colspan="2"><span class="num">6</span><span class="label">NOMBRE O RAZÓN SOCIAL DEL SUJETO RETENIDO</span><br>{{.Voucher.Subject.Name}}</td>
    <td><span class="num">7</span><span class="label">RIF DEL SUJETO RETENIDO</span><br>{{.Voucher.Subject.RIF}}</td>
  </tr>
</table>

<table class="items">
  <thead>
    <tr>
      <th>Oper. Nº</th>
      <th>Fecha Factura</th>
      <th>Nº Factura</th>
      <th>Nº Control</th>
      <th>Nº Nota Débito</th>
      <th>Tipo Trans.</th>
      <th>Nº Comprobante Afectado</th>
      <th>Total Compras con IVA</th>
      <th>Compras Exentas</th>
      <th>Base Imponible</th>
      <th>% Alíc.</th>
      <th>IVA Causado</th>
      <th>IVA Retenido</th>
    </tr>
  </thead>
  <tbody>
    {{range .Lines}}
    <tr>
      <td class="center">{{.Number}}</td>
      <td class="center">{{.InvoiceDate}}</td>
      <td class="center">{{.Item.InvoiceNumber}}</td>
      <td class="center">{{.Item.ControlNumber}}</td>
      <td class="center">{{.Item.DebitNoteNumber}}</td>
      <td class="center">{{.Item.Type}}</td>
      <td class="center">{{.Item.AffectedVoucher}}</td>
      <td class="amount">{{money .Item.TotalAmount}}</td>
      <td class="amount">{{money .Item.ExemptAmount}}</td>
      <td class="amount">{{money .Item.TaxBase}}</td>
      <td class="amount">{{money .Item.TaxRate}}</td>
      <td class="amount">{{money .Item.TaxAmount}}</td>
      <td class="amount">{{money .Item.RetainedAmount}}</td>
    </tr>
    {{end}}
    <tr class="totals">
      <td colspan="7">TOTALES</td>
      <td class="amount">{{money .Voucher.TotalPurchase}}</td>
      <td class="amount"></td>
      <td class="amount"></td>
      <td class="amount"></td>
      <td class="amount">{{money .Voucher.TotalTax}}</td>
      <td class="amount">{{money .Voucher.TotalRetained}}</td>
    </tr>
  </tbody>
</table>

<table class="signatures">
  <tr>
    <td><div class="sign-line">Firma y sello del Agente de Retención<br>{{.Voucher.Agent.Name}}</div></td>
    <td><div class="sign-line">Firma del Sujeto Retenido<br>{{.Voucher.Subject.Name}}</div></td>
  </tr>
</table>
</body>
</html>`))

// voucherLine pairs an item with its printed line number
type voucherLine struct {
	Number      int
	InvoiceDate string
	Item        retention.InvoiceItem
}

type voucherTemplateData struct {
	Voucher  *retention.RetentionVoucher
	IssuedAt string
	Lines    []voucherLine
}

// RenderVoucherHTML produces the printable legal voucher document
func RenderVoucherHTML(voucher *retention.RetentionVoucher) (string, error) {
	if voucher == nil {
		return "", NewRenderError(ErrCodeInvalidHTML, "voucher is nil", nil)
	}

	lines := make([]voucherLine, 0, len(voucher.Items))
	for i, item := range voucher.Items {
		lines = append(lines, voucherLine{
			Number:      i + 1,
			InvoiceDate: item.InvoiceDate.Format("02/01/2006"),
			Item:        item,
		})
	}

	var buf bytes.Buffer
	err := voucherTemplate.Execute(&buf, voucherTemplateData{
		Voucher:  voucher,
		IssuedAt: voucher.IssuedAt.Format("02/01/2006"),
		Lines:    lines,
	})
	if err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "voucher template failed", err)
	}
	return buf.String(), nil
}

// formatMoney prints an amount with thousands separators and two decimals,
// in the es-VE convention (1.234.567,89).
func formatMoney(d decimal.Decimal) string {
	fixed := d.StringFixed(2)

	negative := false
	if fixed[0] == '-' {
		negative = true
		fixed = fixed[1:]
	}

	intPart := fixed[:len(fixed)-3]
	decPart := fixed[len(fixed)-2:]

	var grouped []byte
	for i, digit := range []byte(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped = append(grouped, '.')
		}
		grouped = append(grouped, digit)
	}

	out := fmt.Sprintf("%s,%s", grouped, decPart)
	if negative {
		return "-" + out
	}
	return out
}
