// Package docgen 根据项目与客户信息生成发票、合同文本。
package docgen

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"freelanceDesk/internal/database"
	"freelanceDesk/internal/lifecycle"
)

// 金额与日期固定使用 en-US 格式，保证同样的输入得到同样的文本。
var printer = message.NewPrinter(language.AmericanEnglish)

const dateLayout = "January 2, 2006"

var funcs = template.FuncMap{
	"currency": formatCurrency,
	"number":   formatNumber,
	"date":     formatDate,
	"orNA":     orNA,
}

func formatCurrency(amount *float64) string {
	if amount == nil {
		return "N/A"
	}
	return printer.Sprintf("$%.2f", *amount)
}

func formatNumber(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return printer.Sprintf("%.0f", *v)
}

func formatDate(t any) string {
	switch v := t.(type) {
	case time.Time:
		return v.UTC().Format(dateLayout)
	case *time.Time:
		if v == nil {
			return "N/A"
		}
		return v.UTC().Format(dateLayout)
	default:
		return "N/A"
	}
}

func orNA(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "N/A"
	}
	return *s
}

const invoiceTemplate = `INVOICE {{.Number}}
Date: {{date .IssuedAt}}

Bill to:
  {{.Client.Name}}{{with .Client.Company}}
  {{.}}{{end}}
  {{.Client.Email}}

Project: {{.Project.Name}}{{with .Project.Description}}
Description: {{.}}{{end}}
Languages: {{orNA .Project.SourceLang}} -> {{orNA .Project.TargetLang}}
Volume: {{number .Project.Volume}}
Delivered for deadline: {{date .Project.Deadline}}
Status: {{.Project.Status}}

Amount due: {{currency .Project.Amount}}

Payment is due within 30 days of the invoice date.
`

const contractTemplate = `SERVICE AGREEMENT {{.Number}}
Date: {{date .IssuedAt}}

This agreement is made between the service provider and
  {{.Client.Name}}{{with .Client.Company}} ({{.}}){{end}}, {{.Client.Email}}
(the "Client").

1. Scope of work
   Project: {{.Project.Name}}{{with .Project.Description}}
   {{.}}{{end}}
   Languages: {{orNA .Project.SourceLang}} -> {{orNA .Project.TargetLang}}
   Volume: {{number .Project.Volume}}

2. Schedule
   Delivery deadline: {{date .Project.Deadline}}

3. Fees
   Total fee: {{currency .Project.Amount}}
   An invoice will be issued upon delivery.

4. Current status
   {{.Project.Status}}

Signed for the Client: ______________________

Signed for the Provider: ____________________
`

var templates = map[lifecycle.DocumentKind]*template.Template{
	lifecycle.DocumentInvoice:  template.Must(template.New("invoice").Funcs(funcs).Parse(invoiceTemplate)),
	lifecycle.DocumentContract: template.Must(template.New("contract").Funcs(funcs).Parse(contractTemplate)),
}

type renderData struct {
	Number   string
	IssuedAt time.Time
	Project  database.Project
	Client   database.Client
}

// DocumentNumber 返回文档编号，例如 INV-2024-0007 / CTR-2024-0007。
func DocumentNumber(kind lifecycle.DocumentKind, projectID uint, issuedAt time.Time) string {
	prefix := "CTR"
	if kind == lifecycle.DocumentInvoice {
		prefix = "INV"
	}
	return fmt.Sprintf("%s-%d-%04d", prefix, issuedAt.UTC().Year(), projectID)
}

// Render 用模板生成文档正文，是输入的纯函数。
func Render(kind lifecycle.DocumentKind, project database.Project, client database.Client, issuedAt time.Time) (string, error) {
	tmpl, ok := templates[kind]
	if !ok {
		return "", fmt.Errorf("no template for document type %q", kind)
	}

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, renderData{
		Number:   DocumentNumber(kind, project.ID, issuedAt),
		IssuedAt: issuedAt,
		Project:  project,
		Client:   client,
	})
	if err != nil {
		return "", fmt.Errorf("render %s: %w", kind, err)
	}
	return buf.String(), nil
}
