// Package stdiotransport serves newline-delimited JSON-RPC messages
// on stdin and stdout, and closes when the input ends.
package stdiotransport

import (
	"io"
	"os"
	"sync"

	"github.com/effective-security/xlog"
	"github.com/metoro-io/mcp-golang/transport/stdio"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/gptbridge/mcp", "stdiotransport")

// Transport is a stdio server transport.
// When the client closes its end of the input, the transport is closed
// and the close handler is called.
type Transport struct {
	*stdio.StdioServerTransport
}

// New returns a Transport on os.Stdin and os.Stdout
func New() *Transport {
	return NewWithIO(os.Stdin, os.Stdout)
}

// NewWithIO returns a Transport on the given reader and writer
func NewWithIO(in io.Reader, out io.Writer) *Transport {
	t := &Transport{}
	r := &eofReader{r: in, onEOF: t.handleEOF}
	t.StdioServerTransport = stdio.NewStdioServerTransportWithIO(r, out)
	return t
}

func (t *Transport) handleEOF() {
	logger.KV(xlog.INFO, "status", "input_closed")
	_ = t.Close()
}

// eofReader calls onEOF once, on the first read that returns no data and io.EOF.
// Data returned together with io.EOF is passed on first, so every message
// read before the end of the input is dispatched before onEOF.
type eofReader struct {
	r     io.Reader
	onEOF func()

	once sync.Once
	eof  bool
}

func (r *eofReader) Read(p []byte) (int, error) {
	if r.eof {
		r.once.Do(r.onEOF)
		return 0, io.EOF
	}
	n, err := r.r.Read(p)
	if err == io.EOF {
		r.eof = true
		if n > 0 {
			return n, nil
		}
		r.once.Do(r.onEOF)
	}
	return n, err
}
