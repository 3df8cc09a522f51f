// Package cache は Redis による GET レスポンスキャッシュ。
// Redis に繋がらない環境（開発端末など）では nil クライアントで呼ばれ、
// ミドルウェアは素通しになる。
package cache

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient は addr が空、または疎通できないとき nil を返す。
// 呼び出し側は nil をそのまま GETCache に渡してよい。
func NewRedisClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}

func matchesAny(path string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

type payload struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// GETCache は成功した GET レスポンス(2xx)を ttl の間キャッシュする。
// pathPrefixes に一致するパスだけが対象。未返却一覧のような鮮度が命の
// エンドポイントには貼らないこと。
func GETCache(rdb *redis.Client, ttl time.Duration, pathPrefixes ...string) gin.HandlerFunc {
	if rdb == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}
		if !matchesAny(c.Request.URL.Path, pathPrefixes) {
			c.Next()
			return
		}
		// SSE等のストリーミング応答は全量バッファしてしまうので対象外
		if c.GetHeader("Accept") == "text/event-stream" || strings.HasSuffix(c.Request.URL.Path, "/stream") {
			c.Next()
			return
		}

		sum := sha1.Sum([]byte(c.Request.URL.Path + "?" + c.Request.URL.RawQuery))
		key := fmt.Sprintf("respcache:%x", sum)

		if raw, err := rdb.Get(c.Request.Context(), key).Bytes(); err == nil {
			var p payload
			if json.Unmarshal(raw, &p) == nil {
				c.Header("X-Cache", "HIT")
				c.Data(p.Status, p.ContentType, p.Body)
				c.Abort()
				return
			}
		}

		cw := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = cw
		c.Next()

		status := cw.Status()
		if status < 200 || status >= 300 {
			return
		}
		raw, err := json.Marshal(payload{
			Status:      status,
			ContentType: cw.Header().Get("Content-Type"),
			Body:        cw.buf.Bytes(),
		})
		if err != nil {
			return
		}
		// 書き込み失敗は無視（キャッシュが無いだけで実害なし）
		_ = rdb.Set(c.Request.Context(), key, raw, ttl).Err()
	}
}
