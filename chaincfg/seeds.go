package chaincfg

import (
	"net"
	"time"

	"github.com/spreadcoin/spreadd/wire"
)

// mainNetSeeds are long-running main network nodes, packed as IPv4
// addresses with the first octet in the lowest byte.
var mainNetSeeds = []uint32{
	0x203aedcf, 0x95b35a4e, 0x7a0b0732, 0xc63a6f3e, 0x22f4fbac, 0x60a5c0b2, 0x41546f76, 0x2f3d6853,
	0x14d8b751, 0xa0845a45, 0x3caa4a4c, 0x72f68368, 0xfd351fb0, 0x75845a45, 0x3e6f3ac6, 0xcbe5ac45,
	0xa3babc4e, 0x3baa4a4c, 0x43e49850, 0x7ab969b7, 0x2a32e52e, 0x31ffff54, 0xdc04c5d9, 0x16e6e6b4,
	0x8cd0a52e, 0x0bcc39ae, 0x6d6b6f12, 0x1a7f6f12, 0x776d6f12, 0x9a02c162, 0xf13014d4, 0x16d40151,
	0x60096f12, 0x36056112, 0xcca7bc4e, 0x63e2205a, 0x70d01ad8, 0x88bed75b, 0x17132b1f, 0x8d466659,
	0xb4e5e352, 0x47f4cd48, 0x22f7185e, 0xe6537057, 0x7ab86344, 0xe5591518, 0xe8a9c418, 0x6db09d1b,
}

// SeedAddresses returns the network's fixed seed nodes on the default port.
// They carry a zero last-seen time.
func (p *Params) SeedAddresses() []*wire.NetAddress {
	addrs := make([]*wire.NetAddress, 0, len(p.SeedIPs))
	for _, packed := range p.SeedIPs {
		ip := net.IPv4(byte(packed), byte(packed>>8), byte(packed>>16), byte(packed>>24))
		addrs = append(addrs, wire.NewNetAddressTimestamp(time.Unix(0, 0),
			wire.SFNodeNetwork, ip, p.DefaultPort))
	}
	return addrs
}
