//go:build linux

package portproxy

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"

	"github.com/google/nftables"
	"github.com/google/nftables/expr"
	"golang.org/x/sys/unix"
)

// natTableName is the nftables table holding the DNAT forwarding rules.
const natTableName = "guestport-nat"

// natChainName is the prerouting chain receiving the DNAT rules.
const natChainName = "prerouting"

// NftablesStore implements Store using Linux nftables DNAT rules via the
// google/nftables netlink library. Only the v4tov4 family is supported:
// cross-family redirection has no plain nftables equivalent, so v6tov4
// adds are rejected and v6tov4 deletes and lists are empty no-ops.
type NftablesStore struct {
	logger *slog.Logger
}

// NewNftablesStore returns a Store backed by nftables.
func NewNftablesStore(logger *slog.Logger) (Store, error) {
	return &NftablesStore{logger: logger.With("component", "portproxy")}, nil
}

func (s *NftablesStore) Add(_ context.Context, entry Entry) error {
	if entry.Family != FamilyV4 {
		return fmt.Errorf("portproxy: nftables: family %s not supported", entry.Family)
	}

	target := net.ParseIP(entry.ConnectAddress).To4()
	if target == nil {
		return fmt.Errorf("portproxy: nftables: invalid IPv4 target %q", entry.ConnectAddress)
	}

	conn, err := nftables.New()
	if err != nil {
		return fmt.Errorf("portproxy: nftables: add: %w", err)
	}

	table := conn.AddTable(&nftables.Table{
		Family: nftables.TableFamilyIPv4,
		Name:   natTableName,
	})
	chain := conn.AddChain(&nftables.Chain{
		Name:     natChainName,
		Table:    table,
		Type:     nftables.ChainTypeNAT,
		Hooknum:  nftables.ChainHookPrerouting,
		Priority: nftables.ChainPriorityNATDest,
	})

	// nft equivalent: tcp dport <listen> dnat to <target>:<connect>
	conn.AddRule(&nftables.Rule{
		Table: table,
		Chain: chain,
		Exprs: []expr.Any{
			&expr.Meta{Key: expr.MetaKeyL4PROTO, Register: 1},
			&expr.Cmp{
				Op:       expr.CmpOpEq,
				Register: 1,
				Data:     []byte{unix.IPPROTO_TCP},
			},
			&expr.Payload{
				DestRegister: 1,
				Base:         expr.PayloadBaseTransportHeader,
				Offset:       2, // TCP destination port
				Len:          2,
			},
			&expr.Cmp{
				Op:       expr.CmpOpEq,
				Register: 1,
				Data:     portBytes(uint16(entry.ListenPort)),
			},
			&expr.Counter{},
			&expr.Immediate{Register: 1, Data: target},
			&expr.Immediate{Register: 2, Data: portBytes(uint16(entry.ConnectPort))},
			&expr.NAT{
				Type:        expr.NATTypeDestNAT,
				Family:      unix.NFPROTO_IPV4,
				RegAddrMin:  1,
				RegProtoMin: 2,
			},
		},
	})

	if err := conn.Flush(); err != nil {
		return fmt.Errorf("portproxy: nftables: add port %d: %w", entry.ListenPort, err)
	}

	s.logger.Debug("dnat rule installed",
		"listen_port", entry.ListenPort,
		"target", entry.ConnectAddress,
		"connect_port", entry.ConnectPort,
	)
	return nil
}

// Delete removes the DNAT rule matching the key's listen port. It is
// idempotent: a missing table, chain, or rule returns nil.
func (s *NftablesStore) Delete(_ context.Context, key Key) error {
	if key.Family != FamilyV4 {
		return nil
	}

	conn, err := nftables.New()
	if err != nil {
		return fmt.Errorf("portproxy: nftables: delete: %w", err)
	}

	table, chain, err := findNATChain(conn)
	if err != nil {
		return fmt.Errorf("portproxy: nftables: delete: %w", err)
	}
	if chain == nil {
		return nil
	}

	rules, err := conn.GetRules(table, chain)
	if err != nil {
		return fmt.Errorf("portproxy: nftables: delete: list rules: %w", err)
	}

	deleted := false
	for _, rule := range rules {
		entry, ok := entryFromRule(rule)
		if !ok || entry.ListenPort != key.ListenPort {
			continue
		}
		if err := conn.DelRule(rule); err != nil {
			return fmt.Errorf("portproxy: nftables: delete port %d: %w", key.ListenPort, err)
		}
		deleted = true
	}
	if !deleted {
		return nil
	}

	if err := conn.Flush(); err != nil {
		return fmt.Errorf("portproxy: nftables: delete port %d: %w", key.ListenPort, err)
	}

	s.logger.Debug("dnat rule removed", "listen_port", key.ListenPort)
	return nil
}

func (s *NftablesStore) List(_ context.Context, family string) ([]Entry, error) {
	if family != FamilyV4 {
		return nil, nil
	}

	conn, err := nftables.New()
	if err != nil {
		return nil, fmt.Errorf("portproxy: nftables: list: %w", err)
	}

	table, chain, err := findNATChain(conn)
	if err != nil {
		return nil, fmt.Errorf("portproxy: nftables: list: %w", err)
	}
	if chain == nil {
		return nil, nil
	}

	rules, err := conn.GetRules(table, chain)
	if err != nil {
		return nil, fmt.Errorf("portproxy: nftables: list rules: %w", err)
	}

	var entries []Entry
	for _, rule := range rules {
		if entry, ok := entryFromRule(rule); ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// findNATChain locates the store's table and chain. A nil chain with nil
// error means they do not exist yet.
func findNATChain(conn *nftables.Conn) (*nftables.Table, *nftables.Chain, error) {
	tables, err := conn.ListTablesOfFamily(nftables.TableFamilyIPv4)
	if err != nil {
		return nil, nil, fmt.Errorf("list tables: %w", err)
	}

	var table *nftables.Table
	for _, t := range tables {
		if t.Name == natTableName {
			table = t
			break
		}
	}
	if table == nil {
		return nil, nil, nil
	}

	chains, err := conn.ListChainsOfTableFamily(nftables.TableFamilyIPv4)
	if err != nil {
		return nil, nil, fmt.Errorf("list chains: %w", err)
	}
	for _, ch := range chains {
		if ch.Table.Name == natTableName && ch.Name == natChainName {
			return table, ch, nil
		}
	}
	return table, nil, nil
}

// entryFromRule decodes a rule written by Add back into an Entry. Rules not
// matching that shape are reported as not ok and skipped by callers.
func entryFromRule(rule *nftables.Rule) (Entry, bool) {
	var listenPort uint16
	immediates := make(map[uint32][]byte)
	var nat *expr.NAT

	for _, ex := range rule.Exprs {
		switch v := ex.(type) {
		case *expr.Cmp:
			if len(v.Data) == 2 {
				listenPort = binary.BigEndian.Uint16(v.Data)
			}
		case *expr.Immediate:
			immediates[v.Register] = v.Data
		case *expr.NAT:
			if v.Type == expr.NATTypeDestNAT {
				nat = v
			}
		}
	}

	if nat == nil || listenPort == 0 {
		return Entry{}, false
	}
	addr := immediates[nat.RegAddrMin]
	port := immediates[nat.RegProtoMin]
	if len(addr) != 4 || len(port) != 2 {
		return Entry{}, false
	}

	return Entry{
		Family:         FamilyV4,
		ListenAddress:  ListenAny4,
		ListenPort:     int(listenPort),
		ConnectAddress: net.IP(addr).String(),
		ConnectPort:    int(binary.BigEndian.Uint16(port)),
	}, true
}

// portBytes encodes a port number as 2 big-endian bytes for nftables matching.
func portBytes(port uint16) []byte {
	return []byte{byte(port >> 8), byte(port)}
}
