package relay

import (
	"errors"
	"fmt"
	"io"
)

// FragmentStream yields completion fragments in arrival order. Next returns
// io.EOF once the source is exhausted.
type FragmentStream interface {
	Next() (string, error)
	Close() error
}

// Stats summarises one relayed response.
type Stats struct {
	Fragments int
	Bytes     int
}

// Forward copies every non-empty fragment from src to dst with one Write per
// fragment, in order, until src is exhausted or fails. A nil error means src
// ended cleanly. Forward does not close either side.
func Forward(src FragmentStream, dst io.Writer) (Stats, error) {
	var st Stats
	for {
		frag, err := src.Next()
		if errors.Is(err, io.EOF) {
			return st, nil
		}
		if err != nil {
			return st, fmt.Errorf("relay: read fragment: %w", err)
		}
		if frag == "" {
			continue
		}
		n, err := io.WriteString(dst, frag)
		st.Bytes += n
		if err != nil {
			return st, fmt.Errorf("relay: write fragment: %w", err)
		}
		st.Fragments++
	}
}
