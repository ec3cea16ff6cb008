package server

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/herbalshop/internal/datamodels/order"
	"github.com/example/herbalshop/internal/datamodels/product"
	"github.com/example/herbalshop/internal/datamodels/setting"
)

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestAdminRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)

	rec := do(env.admin, http.MethodGet, "/admin/orders", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(env.admin, http.MethodGet, "/admin/orders", env.token(t, "u@herbal.test", false), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(env.admin, http.MethodGet, "/admin/orders", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminUpdateOrderStatus(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "root@herbal.test", true)
	o := env.placeOrder(t, order.StatusOrdered)
	target := "/admin/orders/" + itoa(o.ID)

	tests := []struct {
		name   string
		body   string
		code   int
		status order.Status
	}{
		{"missing status", `{}`, http.StatusBadRequest, order.StatusOrdered},
		{"skip acceptance", `{"status":"Shipped"}`, http.StatusConflict, order.StatusOrdered},
		{"stale expectation", `{"status":"Accepted","expectedStatus":"Pending"}`, http.StatusConflict, order.StatusOrdered},
		{"accept", `{"status":"Accepted","expectedStatus":"Ordered"}`, http.StatusOK, order.StatusAccepted},
		{"same status", `{"status":"Accepted"}`, http.StatusOK, order.StatusAccepted},
		{"ship", `{"status":"Shipped"}`, http.StatusOK, order.StatusShipped},
		{"deliver", `{"status":"Delivered"}`, http.StatusOK, order.StatusDelivered},
		{"terminal", `{"status":"Accepted"}`, http.StatusConflict, order.StatusDelivered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(env.admin, http.MethodPut, target, tok, tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			stored, err := env.repos.Orders.GetByID(context.Background(), o.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.status, stored.Status)
		})
	}

	rec := do(env.admin, http.MethodPut, "/admin/orders/999", tok, `{"status":"Accepted"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	stored, _ := env.repos.Orders.GetByID(context.Background(), o.ID)
	assert.NotNil(t, stored.ShippedAt)
	assert.NotNil(t, stored.DeliveredAt)
}

func TestAdminResendNotification(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "root@herbal.test", true)
	o := env.placeOrder(t, order.StatusAccepted)
	target := "/admin/orders/" + itoa(o.ID) + "/resend"

	rec := do(env.admin, http.MethodPost, target, tok, `{"from":"orders@herbal.test"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, env.mail.sent, 1)
	assert.Equal(t, "buyer@herbal.test", env.mail.sent[0].To)
	assert.Equal(t, "orders@herbal.test", env.mail.sent[0].From)
	assert.Equal(t, "Order Accepted", env.mail.sent[0].Subject)

	placed := env.placeOrder(t, order.StatusOrdered)
	rec = do(env.admin, http.MethodPost, "/admin/orders/"+itoa(placed.ID)+"/resend", tok, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(env.admin, http.MethodPost, "/admin/orders/999/resend", tok, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminListOrders(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "root@herbal.test", true)
	env.placeOrder(t, order.StatusOrdered)
	env.placeOrder(t, order.StatusShipped)

	var list []order.Order
	rec := do(env.admin, http.MethodGet, "/admin/orders?status=Shipped", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, order.StatusShipped, list[0].Status)

	rec = do(env.admin, http.MethodGet, "/admin/orders?status=Lost", tok, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminProducts(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "root@herbal.test", true)

	var created product.Product
	rec := do(env.admin, http.MethodPost, "/admin/products", tok, `{"name":"Tulsi","price":120,"images":["a.jpg"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &created)
	assert.Equal(t, product.StatusApproved, created.Status)
	assert.NotNil(t, created.ApprovedAt)
	assert.Equal(t, "root@herbal.test", created.ApprovedBy)
	assert.Equal(t, "a.jpg", created.Image)

	pending, err := env.svc.Products.Submit(context.Background(), &product.Product{Name: "Giloy", Price: 5}, "vendor@herbal.test")
	require.NoError(t, err)

	var rejected product.Product
	rec = do(env.admin, http.MethodPut, "/admin/products/"+itoa(pending.ID)+"/reject", tok, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &rejected)
	assert.Equal(t, product.StatusRejected, rejected.Status)
	assert.Equal(t, "Product does not meet store standards", rejected.RejectionReason)

	rec = do(env.admin, http.MethodPut, "/admin/products/"+itoa(pending.ID)+"/approve", tok, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	var all []product.Product
	rec = do(env.admin, http.MethodGet, "/admin/products", tok, "")
	decode(t, rec, &all)
	assert.Len(t, all, 2)
}

func TestAdminSettings(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "root@herbal.test", true)

	var s setting.Setting
	rec := do(env.admin, http.MethodGet, "/admin/settings/adminEmail", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &s)
	assert.Equal(t, "", s.Value)

	rec = do(env.admin, http.MethodPost, "/admin/settings", tok, `{"key":"googlePassword","value":"app-password"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(env.admin, http.MethodGet, "/admin/settings/googlePassword", tok, "")
	decode(t, rec, &s)
	assert.NotEqual(t, "app-password", s.Value)
	assert.Equal(t, "**********rd", s.Value)

	rec = do(env.admin, http.MethodPost, "/admin/settings", tok, `{"key":"","value":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := do(env.admin, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "herbal_")
}
