package middleware

import (
	"strings"

	"github.com/kataras/iris/v12"

	"github.com/example/herbalshop/internal/auth"
	"github.com/example/herbalshop/internal/config"
)

// 登录信息写入 ctx.Values() 的 key
const (
	KeyUserEmail = "user_email"
	KeyUserName  = "user_name"
	KeyIsAdmin   = "is_admin"
)

func bearerToken(ctx iris.Context) string {
	h := strings.TrimSpace(ctx.GetHeader("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return h
}

func setIdentity(ctx iris.Context, c *auth.Claims) {
	ctx.Values().Set(KeyUserEmail, c.Email)
	ctx.Values().Set(KeyUserName, c.Name)
	ctx.Values().Set(KeyIsAdmin, c.IsAdmin)
}

// RequireUser 校验登录令牌
func RequireUser(cfg *config.JWTConfig) iris.Handler {
	return func(ctx iris.Context) {
		token := bearerToken(ctx)
		if token == "" {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "missing token"})
			return
		}
		claims, err := auth.ParseToken(cfg, token)
		if err != nil {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "invalid token"})
			return
		}
		setIdentity(ctx, claims)
		ctx.Next()
	}
}

// RequireAdmin 校验登录令牌且要求管理员身份
func RequireAdmin(cfg *config.JWTConfig) iris.Handler {
	return func(ctx iris.Context) {
		token := bearerToken(ctx)
		if token == "" {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "missing token"})
			return
		}
		claims, err := auth.ParseToken(cfg, token)
		if err != nil {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "invalid token"})
			return
		}
		if !claims.IsAdmin {
			ctx.StopWithJSON(403, iris.Map{"code": 403, "msg": "admin only"})
			return
		}
		setIdentity(ctx, claims)
		ctx.Next()
	}
}

// OptionalUser 有合法令牌时写入身份信息，否则按匿名用户继续
func OptionalUser(cfg *config.JWTConfig) iris.Handler {
	return func(ctx iris.Context) {
		if token := bearerToken(ctx); token != "" {
			if claims, err := auth.ParseToken(cfg, token); err == nil {
				setIdentity(ctx, claims)
			}
		}
		ctx.Next()
	}
}

// UserEmail 当前登录用户邮箱
func UserEmail(ctx iris.Context) string {
	return ctx.Values().GetString(KeyUserEmail)
}

func UserName(ctx iris.Context) string {
	return ctx.Values().GetString(KeyUserName)
}

func IsAdmin(ctx iris.Context) bool {
	return ctx.Values().GetBoolDefault(KeyIsAdmin, false)
}
