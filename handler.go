package tick

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DefaultPath is where the counter endpoint is mounted.
const DefaultPath = "/javacount"

// RegisterRoutes mounts the counter endpoints on r:
//
//	GET {path}          advance the counter, body "Tick: n\n"
//	GET {path}/current  read the counter without advancing it
func RegisterRoutes(r gin.IRoutes, sup *Supervisor, path string) {
	if path == "" {
		path = DefaultPath
	}
	r.GET(path, countHandler(sup))
	r.GET(path+"/current", currentHandler(sup))
}

// NewRouter returns a gin engine serving the counter endpoints.
func NewRouter(sup *Supervisor, path string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	RegisterRoutes(r, sup, path)
	return r
}

func countHandler(sup *Supervisor) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := sup.Count(c.Request.Context())
		if err != nil {
			writeError(c, sup, err)
			return
		}
		// The body is plain text but is labelled JSON for compatibility
		// with existing clients of this endpoint.
		c.Data(http.StatusOK, "application/json", []byte(body))
	}
}

func currentHandler(sup *Supervisor) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok, err := sup.Current(c.Request.Context())
		if err != nil {
			writeError(c, sup, err)
			return
		}
		if !ok {
			c.String(http.StatusNotFound, "counter not initialized\n")
			return
		}
		c.String(http.StatusOK, "Counter: %d\n", v)
	}
}

// writeError logs the full error and answers with a fixed body, so store
// addresses and queries never reach the client.
func writeError(c *gin.Context, sup *Supervisor, err error) {
	sup.logger.Error("request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)

	switch {
	case errors.Is(err, ErrStorageFailure):
		c.String(http.StatusServiceUnavailable, "storage failure\n")
	case errors.Is(err, ErrInstanceCrashed):
		c.String(http.StatusInternalServerError, "instance crashed\n")
	default:
		c.String(http.StatusInternalServerError, "internal error\n")
	}
}
