package upstream

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"
)

type stderrWriter struct{}

func (stderrWriter) Write(p []byte) (int, error) { return os.Stderr.Write(p) }

func (c *Client) dumpRequest(req *http.Request, body []byte) {
	if !c.debug {
		return
	}
	head, err := httputil.DumpRequestOut(req, false)
	if err != nil {
		slog.Error("upstream.request.dump.failed", "error", err)
		return
	}
	c.writeDumpBlock("UPSTREAM REQUEST", append(redactAuthorization(head), body...))
}

func (c *Client) dumpResponse(resp *http.Response) {
	if !c.debug || resp == nil {
		return
	}
	head, err := httputil.DumpResponse(resp, false)
	if err != nil {
		slog.Error("upstream.response.dump.failed", "error", err)
		return
	}
	c.writeDumpBlock("UPSTREAM RESPONSE", head)
	if resp.Body != nil {
		title := fmt.Sprintf("UPSTREAM RESPONSE BODY status=%d", resp.StatusCode)
		c.writeDumpBoundary(title, true)
		resp.Body = &dumpReadCloser{src: resp.Body, client: c, title: title}
	}
}

func (c *Client) writeDumpBlock(title string, data []byte) {
	c.writeDumpBoundary(title, true)
	if len(data) > 0 {
		c.writeDumpChunk(data)
		if data[len(data)-1] != '\n' {
			c.writeDumpChunk([]byte("\n"))
		}
	}
	c.writeDumpBoundary(title, false)
}

func (c *Client) writeDumpBoundary(title string, begin bool) {
	kind := "END"
	if begin {
		kind = "BEGIN"
	}
	c.writeDumpChunk([]byte("===== " + strings.TrimSpace(title) + " " + kind + " =====\n"))
}

func (c *Client) writeDumpChunk(data []byte) {
	c.dumpMu.Lock()
	defer c.dumpMu.Unlock()
	if _, err := c.dumpOut.Write(data); err != nil {
		slog.Error("upstream.dump.write.failed", "error", err)
	}
}

// redactAuthorization masks the bearer token in a dumped request head.
func redactAuthorization(head []byte) []byte {
	lines := strings.Split(string(head), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(line), "authorization:") {
			lines[i] = "Authorization: [redacted]\r"
		}
	}
	return []byte(strings.Join(lines, "\n"))
}

// dumpReadCloser mirrors a response body to the dump output as it is read.
type dumpReadCloser struct {
	src      io.ReadCloser
	client   *Client
	title    string
	closed   bool
	lastByte byte
}

func (d *dumpReadCloser) Read(p []byte) (int, error) {
	n, err := d.src.Read(p)
	if n > 0 {
		d.client.writeDumpChunk(p[:n])
		d.lastByte = p[n-1]
	}
	if err == io.EOF {
		d.finish()
	}
	return n, err
}

func (d *dumpReadCloser) Close() error {
	err := d.src.Close()
	d.finish()
	return err
}

func (d *dumpReadCloser) finish() {
	if d.closed {
		return
	}
	d.closed = true
	if d.lastByte != 0 && d.lastByte != '\n' {
		d.client.writeDumpChunk([]byte("\n"))
	}
	d.client.writeDumpBoundary(d.title, false)
}
