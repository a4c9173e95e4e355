package server

import (
	"io"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// Logger returns the request logging middleware writing to w.
func Logger(w io.Writer) fiber.Handler {
	return logger.New(logger.Config{
		Stream:     w,
		Format:     "[${time}] ${status} - ${latency} ${method} ${path} | ${bytesReceived}B in, ${bytesSent}B out\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	})
}
