// Package capture pulls TCP payloads out of offline pcap files so recorded
// traffic can serve as plaintext for avalanche measurements.
package capture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// ErrUnsupportedLinkType is returned for captures that are not Ethernet.
var ErrUnsupportedLinkType = errors.New("capture: unsupported link type")

// Payloads reads a pcap stream and returns the non-empty TCP payloads of
// packets whose source or destination port is port, in capture order.
// Port 0 matches every port; limit 0 returns all payloads.
func Payloads(r io.Reader, port uint16, limit int) ([][]byte, error) {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("capture: read header: %w", err)
	}
	if lt := pr.LinkType(); lt != layers.LinkTypeEthernet {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedLinkType, lt)
	}

	var ethLayer layers.Ethernet
	var ipv4Layer layers.IPv4
	var ipv6Layer layers.IPv6
	var tcpLayer layers.TCP
	parser := gopacket.NewDecodingLayerParser(
		layers.LayerTypeEthernet,
		&ethLayer,
		&ipv4Layer,
		&ipv6Layer,
		&tcpLayer,
	)
	parser.IgnoreUnsupported = true

	var out [][]byte
	var foundLayerTypes []gopacket.LayerType
	for limit == 0 || len(out) < limit {
		data, _, err := pr.ReadPacketData()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("capture: read packet: %w", err)
		}

		// Truncated or malformed packets are skipped.
		if err := parser.DecodeLayers(data, &foundLayerTypes); err != nil {
			continue
		}
		if !slices.Contains(foundLayerTypes, layers.LayerTypeTCP) {
			continue
		}
		if port != 0 && uint16(tcpLayer.SrcPort) != port && uint16(tcpLayer.DstPort) != port {
			continue
		}
		if len(tcpLayer.Payload) == 0 {
			continue
		}
		out = append(out, bytes.Clone(tcpLayer.Payload))
	}
	return out, nil
}
