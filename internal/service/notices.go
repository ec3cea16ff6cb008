package service

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/example/herbalshop/internal/datamodels/order"
	"github.com/example/herbalshop/internal/datamodels/product"
	"github.com/example/herbalshop/internal/notify"
	"github.com/example/herbalshop/web"
)

// viewRenderer 邮件正文渲染，*iris.HTMLEngine 满足
type viewRenderer interface {
	ExecuteWriter(w io.Writer, name string, layout string, bindingData interface{}) error
}

var (
	noticeViews     viewRenderer
	noticeViewsErr  error
	noticeViewsOnce sync.Once
)

type noticeData struct {
	Order      *order.Order
	Product    *product.Product
	ApproveURL string
	RejectURL  string
	OnRequest  bool
}

// renderNotice 用 web/views/mail 下的模板渲染邮件正文，模板负责转义用户填写的字段
func renderNotice(name string, data noticeData) (string, error) {
	noticeViewsOnce.Do(func() {
		noticeViews, noticeViewsErr = web.LoadViews()
	})
	if noticeViewsErr != nil {
		return "", noticeViewsErr
	}
	var buf bytes.Buffer
	if err := noticeViews.ExecuteWriter(&buf, "mail/"+name+".html", "", data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// orderStatusNotice 买家收到的状态变更通知；from 用于区分取消是否由买家申请
func orderStatusNotice(o *order.Order, from order.Status) (notify.Request, bool, error) {
	var subject, tmpl string
	data := noticeData{Order: o}
	switch o.Status {
	case order.StatusAccepted:
		subject, tmpl = "Order Accepted", "order_accepted"
	case order.StatusRejected:
		subject, tmpl = "Order Rejected", "order_rejected"
	case order.StatusCancelled:
		subject, tmpl = "Order Cancelled", "order_cancelled"
		if from == order.StatusCancellationRequested {
			subject = "Order Cancelled Successfully"
			data.OnRequest = true
		}
	case order.StatusShipped:
		subject, tmpl = "Order Shipped", "order_shipped"
	case order.StatusDelivered:
		subject, tmpl = "Order Delivered", "order_delivered"
	case order.StatusCancellationRequested:
		subject, tmpl = "Cancellation Request Received", "cancel_received"
	default:
		return notify.Request{}, false, nil
	}
	html, err := renderNotice(tmpl, data)
	if err != nil {
		return notify.Request{}, false, err
	}
	return notify.Request{To: o.UserEmail, Subject: subject, HTML: html}, true, nil
}
