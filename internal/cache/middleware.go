package cache

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// captureWriter tees the rendered response into a buffer on its way to
// the client.
type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Middleware serves repeated POST bodies from the cache and stores
// every fresh 200 response. Non-200 responses are never cached, so
// transient failures do not stick.
func Middleware(c *Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodPost || ctx.Request.Body == nil {
			ctx.Next()
			return
		}

		body, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			ctx.Next()
			return
		}
		ctx.Request.Body = io.NopCloser(bytes.NewReader(body))

		key := Key(append([]byte(ctx.FullPath()+"\x00"), body...))
		if data, ok := c.Get(key); ok {
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", data)
			ctx.Abort()
			return
		}

		writer := &captureWriter{ResponseWriter: ctx.Writer}
		ctx.Writer = writer
		ctx.Next()

		if writer.Status() == http.StatusOK {
			c.Set(key, writer.buf.Bytes())
		}
	}
}
