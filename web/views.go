// Package web 打包 HTML 模板：web/views/links 是邮件链接的结果页，web/views/mail 是通知邮件正文。
package web

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/view"
)

//go:embed views
var files embed.FS

// NewViews 创建 HTML 模板引擎，交给 app.RegisterView 注册
func NewViews() *view.HTMLEngine {
	root, err := fs.Sub(files, "views")
	if err != nil {
		panic(fmt.Sprintf("web: sub views: %v", err))
	}
	tmpl := iris.HTML(root, ".html")

	// 金额格式化：150 -> ₹150.00
	tmpl.AddFunc("money", func(v float64) string {
		return fmt.Sprintf("₹%.2f", v)
	})
	tmpl.AddFunc("orDefault", func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	})
	return tmpl
}

// LoadViews 创建并立即加载模板，用于不经过 iris 应用的渲染（邮件正文）
func LoadViews() (*view.HTMLEngine, error) {
	tmpl := NewViews()
	if err := tmpl.Load(); err != nil {
		return nil, fmt.Errorf("load views: %w", err)
	}
	return tmpl, nil
}
