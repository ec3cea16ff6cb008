package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kataras/iris/v12"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/herbalshop/internal/auth"
	"github.com/example/herbalshop/internal/config"
	"github.com/example/herbalshop/internal/datamodels/order"
	"github.com/example/herbalshop/internal/datamodels/product"
	"github.com/example/herbalshop/internal/infra/mq"
	"github.com/example/herbalshop/internal/notify"
	"github.com/example/herbalshop/internal/repository/memory"
	"github.com/example/herbalshop/web"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []notify.Request
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, req notify.Request) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, req)
	return "<id@test>", nil
}

func (d *recordingDispatcher) Recipient(ctx context.Context) (string, error) {
	return "admin@herbal.test", nil
}

type testEnv struct {
	cfg   *config.Config
	svc   *Services
	repos Repositories
	web   *iris.Application
	admin *iris.Application
	mail  *recordingDispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Links.RateLimit = 0

	store := memory.NewStore()
	repos := Repositories{
		Orders:   memory.NewOrderRepository(store),
		Products: memory.NewProductRepository(store),
		Reviews:  memory.NewReviewRepository(store),
		Settings: memory.NewSettingRepository(store),
	}
	mail := &recordingDispatcher{}
	svc := NewServices(cfg, repos, mail, auth.NewMemoryUsedTokens(), mq.Discard{})

	app := iris.New()
	app.Logger().SetLevel("disable")
	app.RegisterView(web.NewViews())
	RegisterRoutes(app, cfg, svc)
	require.NoError(t, app.Build())

	admin := iris.New()
	admin.Logger().SetLevel("disable")
	RegisterAdminRoutes(admin, cfg, svc)
	require.NoError(t, admin.Build())

	return &testEnv{cfg: cfg, svc: svc, repos: repos, web: app, admin: admin, mail: mail}
}

func (e *testEnv) token(t *testing.T, email string, isAdmin bool) string {
	t.Helper()
	tok, err := auth.GenerateToken(&e.cfg.JWT, auth.Claims{Email: email, Name: "Test", IsAdmin: isAdmin}, time.Hour)
	require.NoError(t, err)
	return tok
}

func do(app *iris.Application, method, target, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func (e *testEnv) placeOrder(t *testing.T, status order.Status) *order.Order {
	t.Helper()
	o := &order.Order{ProductID: 1, ProductName: "Tulsi Tea", Quantity: 1, Price: 100, UserEmail: "buyer@herbal.test", Status: status}
	require.NoError(t, e.repos.Orders.Create(context.Background(), o))
	return o
}

func TestOrderApproveLink(t *testing.T) {
	env := newTestEnv(t)
	o := env.placeOrder(t, order.StatusOrdered)
	link, err := env.svc.Links.URL(auth.EntityOrder, o.ID, auth.ActionApprove)
	require.NoError(t, err)

	rec := do(env.web, http.MethodGet, link, "", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, env.cfg.Links.AdminConsoleURL, rec.Header().Get("Location"))

	stored, err := env.repos.Orders.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusAccepted, stored.Status)

	// 同一链接只能使用一次
	rec = do(env.web, http.MethodGet, link, "", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "already been used")
}

func TestOrderLinkRefusals(t *testing.T) {
	env := newTestEnv(t)
	o := env.placeOrder(t, order.StatusOrdered)
	rejectLink, err := env.svc.Links.URL(auth.EntityOrder, o.ID, auth.ActionReject)
	require.NoError(t, err)

	tests := []struct {
		name   string
		target string
		code   int
		body   string
	}{
		{"missing token", "/orders/1/approve", http.StatusForbidden, "invalid or has expired"},
		{"garbage token", "/orders/1/approve?token=abc", http.StatusForbidden, "invalid or has expired"},
		// reject 的令牌不能用来 approve
		{"wrong action", strings.Replace(rejectLink, "/reject?", "/approve?", 1), http.StatusForbidden, "invalid or has expired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(env.web, http.MethodGet, tt.target, "", "")
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}

	stored, _ := env.repos.Orders.GetByID(context.Background(), o.ID)
	assert.Equal(t, order.StatusOrdered, stored.Status)
}

func TestOrderLinkNotFound(t *testing.T) {
	env := newTestEnv(t)
	link, err := env.svc.Links.URL(auth.EntityOrder, 404, auth.ActionApprove)
	require.NoError(t, err)

	rec := do(env.web, http.MethodGet, link, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Order not found", rec.Body.String())
}

func TestApproveCancellationLinkRequiresRequest(t *testing.T) {
	env := newTestEnv(t)
	o := env.placeOrder(t, order.StatusOrdered)
	link, err := env.svc.Links.URL(auth.EntityOrder, o.ID, auth.ActionApproveCancellation)
	require.NoError(t, err)

	rec := do(env.web, http.MethodGet, link, "", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancelByUser(t *testing.T) {
	env := newTestEnv(t)
	o := env.placeOrder(t, order.StatusOrdered)
	target := "/orders/" + itoa(o.ID) + "/cancel-by-user"

	rec := do(env.web, http.MethodPut, target, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(env.web, http.MethodPut, target, env.token(t, "other@herbal.test", false), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// 令牌里没有邮箱
	rec = do(env.web, http.MethodPut, target, env.token(t, "", false), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(env.web, http.MethodPut, target, env.token(t, "buyer@herbal.test", false), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got order.Order
	decode(t, rec, &got)
	assert.Equal(t, order.StatusCancellationRequested, got.Status)

	// 已申请过不能再次申请
	rec = do(env.web, http.MethodPut, target, env.token(t, "buyer@herbal.test", false), "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPlaceOrderUsesTokenIdentity(t *testing.T) {
	env := newTestEnv(t)
	body := `{"productId":3,"productName":"Neem Oil","quantity":2,"price":50,"shippingCost":10,"shippingAddress":{"firstName":"Asha","address":"12 MG Road"}}`

	rec := do(env.web, http.MethodPost, "/orders", env.token(t, "asha@herbal.test", false), body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got order.Order
	decode(t, rec, &got)
	assert.Equal(t, "asha@herbal.test", got.UserEmail)
	assert.Equal(t, order.StatusOrdered, got.Status)
	assert.InDelta(t, 110, got.TotalAmount, 1e-9)

	rec = do(env.web, http.MethodGet, "/orders/mine", env.token(t, "asha@herbal.test", false), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []order.Order
	decode(t, rec, &mine)
	assert.Len(t, mine, 1)
}

func TestProductRejectLink(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.svc.Products.Submit(context.Background(), &product.Product{Name: "Brahmi <Oil>", Price: 10}, "vendor@herbal.test")
	require.NoError(t, err)
	link, err := env.svc.Links.URL(auth.EntityProduct, p.ID, auth.ActionReject)
	require.NoError(t, err)

	rec := do(env.web, http.MethodGet, link+"&reason=Blurry+images", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Product Rejected")
	assert.Contains(t, rec.Body.String(), "Blurry images")
	assert.Contains(t, rec.Body.String(), "Brahmi &lt;Oil&gt;")

	stored, err := env.repos.Products.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, product.StatusRejected, stored.Status)
	assert.Equal(t, "Blurry images", stored.RejectionReason)
}

func TestProductApproveLink(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.svc.Products.Submit(context.Background(), &product.Product{Name: "Amla", Price: 10}, "vendor@herbal.test")
	require.NoError(t, err)
	link, err := env.svc.Links.URL(auth.EntityProduct, p.ID, auth.ActionApprove)
	require.NoError(t, err)

	rec := do(env.web, http.MethodGet, link, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Product Approved")
	assert.Contains(t, rec.Body.String(), env.cfg.Links.StoreURL)

	rec = do(env.web, http.MethodGet, link, "", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<h1>Link Unavailable</h1>")
	assert.Contains(t, rec.Body.String(), "This link has already been used.")

	// 已审核的商品再用新链接驳回
	reject, err := env.svc.Links.URL(auth.EntityProduct, p.ID, auth.ActionReject)
	require.NoError(t, err)
	rec = do(env.web, http.MethodGet, reject, "", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "This product has already been reviewed.")
}

func TestProductVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	live, err := env.svc.Products.CreateByAdmin(ctx, &product.Product{Name: "Live", Price: 1}, "root@herbal.test")
	require.NoError(t, err)
	pending, err := env.svc.Products.Submit(ctx, &product.Product{Name: "Waiting", Price: 1}, "vendor@herbal.test")
	require.NoError(t, err)

	var list []product.Product
	rec := do(env.web, http.MethodGet, "/products", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, live.ID, list[0].ID)

	// 普通用户的 showAll 被忽略
	rec = do(env.web, http.MethodGet, "/products?showAll=1", env.token(t, "u@herbal.test", false), "")
	decode(t, rec, &list)
	assert.Len(t, list, 1)

	rec = do(env.web, http.MethodGet, "/products?showAll=1", env.token(t, "root@herbal.test", true), "")
	decode(t, rec, &list)
	assert.Len(t, list, 2)

	rec = do(env.web, http.MethodGet, "/products/"+itoa(pending.ID), "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReviewUpdatesRating(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.svc.Products.CreateByAdmin(context.Background(), &product.Product{Name: "Moringa", Price: 1}, "root@herbal.test")
	require.NoError(t, err)
	tok := env.token(t, "u@herbal.test", false)

	for _, r := range []string{"4", "5", "3"} {
		rec := do(env.web, http.MethodPost, "/reviews", tok, `{"productId":`+itoa(p.ID)+`,"rating":`+r+`}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec := do(env.web, http.MethodPost, "/reviews", tok, `{"productId":`+itoa(p.ID)+`,"rating":9}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var got product.Product
	rec = do(env.web, http.MethodGet, "/products/"+itoa(p.ID), "", "")
	decode(t, rec, &got)
	assert.InDelta(t, 4.0, got.AverageRating, 1e-9)
	assert.Equal(t, int64(3), got.RatingCount)
}
