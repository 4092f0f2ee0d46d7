package dispatch

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/cuemby/relay/pkg/log"
	"github.com/cuemby/relay/pkg/wire"
)

// wireReader is the sole reader of the control socket. It decodes frames and
// hands each one to the Dispatcher, which is the only component permitted to
// act on them. It owns no state of its own beyond the connection.
type wireReader struct {
	conn io.Reader
	disp *Dispatcher
	log  zerolog.Logger
}

func newWireReader(conn io.Reader, disp *Dispatcher) *wireReader {
	return &wireReader{conn: conn, disp: disp, log: log.WithComponent("wire_reader")}
}

// run blocks decoding frames until the connection closes or a frame is
// malformed. A clean EOF at a frame boundary is not an error: it means the
// broker closed its write half, and run returns nil so the Driver can shut
// the rest of the mesh down without surfacing a spurious failure. Either way,
// run always calls Abort on return so a Dispatcher still waiting on
// in-flight jobs is not left blocked forever by a connection that is no
// longer readable.
func (r *wireReader) run() error {
	defer r.disp.Abort()

	for {
		var msg wire.BrokerToClient
		err := wire.ReadMessage(r.conn, &msg)
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.log.Info().Msg("control connection closed by broker")
				return nil
			}
			return fmt.Errorf("dispatch: read control frame: %w", err)
		}
		r.disp.Deliver(msg)
	}
}
