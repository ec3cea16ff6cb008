package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/herbalshop/internal/datamodels/order"
	"github.com/example/herbalshop/internal/datamodels/product"
)

func TestRenderNoticeEscapesUserFields(t *testing.T) {
	o := &order.Order{
		ID:          12,
		ProductName: "Neem <Oil>",
		Quantity:    2,
		TotalAmount: 199.5,
		UserEmail:   "buyer@herbal.test",
		UserName:    `<script>alert("x")</script>`,
		ShippingAddress: order.ShippingAddress{
			FirstName: "Asha",
			Address:   "12 MG Road",
		},
	}
	html, err := renderNotice("order_accepted", noticeData{Order: o})
	require.NoError(t, err)
	assert.Contains(t, html, "Order Accepted!")
	assert.Contains(t, html, "Neem &lt;Oil&gt;")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "₹199.50")
	// 地址片段来自 mail/address.html
	assert.Contains(t, html, "12 MG Road")
	assert.Contains(t, html, "Email: buyer@herbal.test")
	assert.Contains(t, html, "Phone: N/A")
}

func TestRenderNoticeUnknownTemplate(t *testing.T) {
	_, err := renderNotice("no_such_notice", noticeData{})
	assert.Error(t, err)
}

func TestOrderStatusNotice(t *testing.T) {
	o := &order.Order{ID: 3, ProductName: "Tulsi Tea", UserEmail: "buyer@herbal.test", Status: order.StatusCancelled}

	req, ok, err := orderStatusNotice(o, order.StatusCancellationRequested)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Order Cancelled Successfully", req.Subject)
	assert.Contains(t, req.HTML, "cancelled as requested")

	req, ok, err = orderStatusNotice(o, order.StatusOrdered)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Order Cancelled", req.Subject)
	assert.NotContains(t, req.HTML, "as requested")

	o.Status = order.StatusOrdered
	_, ok, err = orderStatusNotice(o, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProductNoticeShowsReason(t *testing.T) {
	p := &product.Product{Name: "Brahmi", RejectionReason: "Missing lab report"}
	html, err := renderNotice("product_rejected", noticeData{Product: p})
	require.NoError(t, err)
	assert.Contains(t, html, "Missing lab report")
}
