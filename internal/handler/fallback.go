package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/hitoshi/pitchlog/internal/model"
)

// NotHandledFallback はルーティング表に載らないリクエストへ
// 404エンベロープを返すハンドラーを生成する。
func NotHandledFallback() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     "ROUTE_NOT_HANDLED",
			Message:  fmt.Sprintf("このパスは処理できません: %s %s", r.Method, r.URL.Path),
			Category: "system",
			Action:   "リクエスト先のパスとメソッドを確認してください。",
		})
	})
}

// NewProxyFallback はルーティング表に載らないリクエストを
// 外部APIへ転送するリバースプロキシハンドラーを生成する。
func NewProxyFallback(target *url.URL) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Error("fallback proxy error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		writeAPIErrorResponse(w, http.StatusBadGateway, &model.APIError{
			Code:     "UPSTREAM_UNREACHABLE",
			Message:  "外部APIへの転送に失敗しました。",
			Category: "system",
			Action:   "外部APIの稼働状況を確認してください。",
		})
	}
	return proxy
}
