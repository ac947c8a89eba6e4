package http

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/davicafu/inventorylab/internal/product/application"
	"github.com/davicafu/inventorylab/internal/product/domain"
	"github.com/davicafu/inventorylab/pkg/utils"
)

// bodyCaptureWriter duplica el body de la respuesta para poder cachearlo
// por clave de idempotencia.
type bodyCaptureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// IdempotencyMiddleware aplica la política de intake idempotente a las
// peticiones que mutan estado:
//   - sin clave → 400
//   - resultado terminal cacheado → se reproduce byte a byte, sin re-ejecutar
//   - misma clave en curso → 409
//   - clave nueva → se marca Processing, se ejecuta y se finaliza el registro
func IdempotencyMiddleware(svc *application.IdempotencyService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		key := c.GetHeader("Idempotency-Key")
		if key == "" {
			utils.SendBadRequest(c, "Idempotency-Key header is required for write operations")
			c.Abort()
			return
		}

		cached, err := svc.Begin(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, domain.ErrDuplicateSubmission) {
				utils.SendConflict(c, "request with this idempotency key is currently being processed")
				c.Abort()
				return
			}
			log.Error("Fallo en el servicio de idempotencia", zap.String("key", key), zap.Error(err))
			utils.SendInternalServerError(c, "idempotency check failed")
			c.Abort()
			return
		}

		if cached != nil {
			// Respuesta previamente registrada, idéntica byte a byte.
			c.Data(cached.HTTPStatus, "application/json; charset=utf-8", cached.ResponseBody)
			c.Abort()
			return
		}

		writer := &bodyCaptureWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		c.Next()

		status := writer.Status()
		body := writer.buf.Bytes()
		ctx := c.Request.Context()

		if status >= 200 && status < 400 {
			if err := svc.StoreSuccess(ctx, key, status, body); err != nil {
				log.Warn("⚠️ No se pudo finalizar clave de idempotencia", zap.String("key", key), zap.Error(err))
			}
		} else {
			errMsg := ""
			if len(c.Errors) > 0 {
				errMsg = c.Errors.String()
			}
			if err := svc.StoreFailure(ctx, key, status, body, errMsg); err != nil {
				log.Warn("⚠️ No se pudo finalizar clave de idempotencia", zap.String("key", key), zap.Error(err))
			}
		}
	}
}
