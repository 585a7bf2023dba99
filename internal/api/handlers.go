package api

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// MIMEApplicationMsgpack is honoured on every JSON endpoint via the Accept header.
const MIMEApplicationMsgpack = "application/msgpack"

func wantsMsgpack(c echo.Context) bool {
	accept := c.Request().Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, MIMEApplicationMsgpack) ||
		strings.Contains(accept, "application/x-msgpack")
}

// respond writes body as JSON, or as msgpack when the client asks for it.
func respond(c echo.Context, status int, body interface{}) error {
	if !wantsMsgpack(c) {
		return c.JSON(status, body)
	}
	data, err := msgpack.Marshal(body)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(status, MIMEApplicationMsgpack, data)
}

// requestID returns the id assigned by the RequestID middleware, if any.
func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
