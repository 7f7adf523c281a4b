package server

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
)

// readHTTPRequest parses one HTTP request off a raw TCP connection that
// the sniffing dispatch in handleConn has already identified as an
// HTTP request by its first four bytes.
func readHTTPRequest(br *bufio.Reader, conn net.Conn) (*http.Request, error) {
	req, err := http.ReadRequest(br)
	if err != nil {
		return nil, err
	}
	req.RemoteAddr = conn.RemoteAddr().String()
	return req, nil
}

// responseRecorder buffers a handler's response in memory (via
// httptest.ResponseRecorder, the same recorder the standard library's
// own HTTP test helpers use) and writes it to the raw connection as a
// single well-formed HTTP/1.1 response once the handler returns. The
// server has no net/http.Server of its own — §4.12 has it sniffing
// raw TCP connections instead of binding a second listener — so the
// response has to be serialized by hand rather than handed to
// http.Server's normal per-connection loop.
type responseRecorder struct {
	*httptest.ResponseRecorder
	conn   net.Conn
	status int
}

func newResponseRecorder(conn net.Conn) *responseRecorder {
	return &responseRecorder{ResponseRecorder: httptest.NewRecorder(), conn: conn}
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseRecorder.WriteHeader(status)
}

// Flush writes the buffered response to the underlying connection.
func (r *responseRecorder) Flush() error {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	resp := r.Result()
	return resp.Write(r.conn)
}
