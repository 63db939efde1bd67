// demo_backend is a stand-in for the local backend the harness targets by
// default. It answers /health and /api/hello and nothing else.
package main

import (
	"github.com/spf13/pflag"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/reuseport"
	"go.uber.org/zap"

	"github.com/cicdpoc/loadharness/internal/logging"
)

var (
	healthBody = []byte("OK")
	helloBody  = []byte("Hello from Backend!")
)

func main() {
	addr := pflag.String("addr", ":8080", "TCP address to listen to")
	debug := pflag.Bool("debug", false, "Log every request")
	pflag.Parse()

	logger, err := logging.New(*debug)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ln, err := reuseport.Listen("tcp4", *addr)
	if err != nil {
		logger.Fatal("could not listen", zap.String("addr", *addr), zap.Error(err))
	}
	logger.Info("serving demo backend", zap.String("addr", ln.Addr().String()))

	srv := &fasthttp.Server{Handler: newHandler(logger), Name: "demo_backend"}
	if err := srv.Serve(ln); err != nil {
		logger.Fatal("error in Serve", zap.Error(err))
	}
}

func newHandler(logger *zap.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/health":
			ctx.SetContentType("text/plain; charset=utf-8")
			ctx.SetBody(healthBody)
		case "/api/hello":
			ctx.SetContentType("text/plain; charset=utf-8")
			ctx.SetBody(helloBody)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
		logger.Debug("request",
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("path", ctx.Path()),
			zap.Int("status", ctx.Response.StatusCode()))
	}
}
