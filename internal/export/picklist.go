// Package export renders warehouse documents such as picking slips.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"golang.org/x/sync/singleflight"

	"github.com/atlas-wms/atlas-wms/internal/sales"
)

// ErrNotReady indicates the order is not in a pickable state.
var ErrNotReady = errors.New("export: order not confirmed for picking")

// SalesPort loads the order to be picked.
type SalesPort interface {
	Get(ctx context.Context, id int64) (sales.Order, []sales.Item, error)
}

// Renderer converts HTML into a PDF document.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Service renders picking slips.
type Service struct {
	sales    SalesPort
	renderer Renderer
	group    singleflight.Group
}

// NewService constructs the export service.
func NewService(salesSvc SalesPort, renderer Renderer) *Service {
	return &Service{sales: salesSvc, renderer: renderer}
}

// PickingSlip renders the picking slip PDF for a confirmed order.
// Concurrent requests for the same order share one render.
func (s *Service) PickingSlip(ctx context.Context, orderID int64) ([]byte, error) {
	order, items, err := s.sales.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != sales.StatusConfirmed {
		return nil, fmt.Errorf("%w: order %s is %s", ErrNotReady, order.Number, order.Status)
	}
	key := fmt.Sprintf("picking-slip:%d", orderID)
	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		html, err := renderPickingSlipHTML(order, items)
		if err != nil {
			return nil, err
		}
		return s.renderer.RenderHTML(ctx, html)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

var pickingSlipTmpl = template.Must(template.New("picking-slip").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Picking Slip {{.Order.Number}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
h1 { font-size: 1.4em; }
table { width: 100%; border-collapse: collapse; margin-top: 1em; }
th, td { border: 1px solid #444; padding: 6px 10px; text-align: left; }
th { background: #eee; }
.qty { text-align: right; }
</style>
</head>
<body>
<h1>Picking Slip {{.Order.Number}}</h1>
<p>Customer: {{.Order.CustomerName}}</p>
<p>Created: {{.Order.CreatedAt.Format "2006-01-02"}}</p>
<table>
<thead>
<tr><th>Product</th><th>SKU</th><th>Location</th><th class="qty">Qty</th></tr>
</thead>
<tbody>
{{range .Items}}<tr><td>{{.ProductName}}</td><td>{{.ProductSKU}}</td><td>{{if .LocationCode}}{{.LocationCode}}{{else}}N/A{{end}}</td><td class="qty">{{.Quantity}}</td></tr>
{{end}}</tbody>
</table>
</body>
</html>`))

func renderPickingSlipHTML(order sales.Order, items []sales.Item) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Order sales.Order
		Items []sales.Item
	}{Order: order, Items: items}
	if err := pickingSlipTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
