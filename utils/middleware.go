package utils

import (
	"time"

	"github.com/kataras/iris/v12"
)

// CORS allows browser clients from any origin to call the API.
func CORS(ctx iris.Context) {
	ctx.Header("Access-Control-Allow-Origin", "*")
	ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
	ctx.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	if ctx.Method() == iris.MethodOptions {
		ctx.StatusCode(iris.StatusNoContent)
		return
	}
	ctx.Next()
}

// MaintenanceMiddleware short-circuits every request with a 503 while the
// flag is set.
func MaintenanceMiddleware(enabled bool) iris.Handler {
	return func(ctx iris.Context) {
		if !enabled {
			ctx.Next()
			return
		}
		ctx.StatusCode(iris.StatusServiceUnavailable)
		ctx.JSON(iris.Map{
			"status":    "maintenance",
			"message":   "The system is currently under maintenance. Please try again later.",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
