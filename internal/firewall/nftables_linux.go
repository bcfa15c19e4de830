//go:build linux

package firewall

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/google/nftables"
	"github.com/google/nftables/expr"
	"golang.org/x/sys/unix"
)

// filterTableName is the nftables table holding the managed allow rules.
const filterTableName = "guestport"

// inputChainName is the input-hook chain receiving the allow rules.
const inputChainName = "input"

// NftablesStore implements Store using Linux nftables accept rules via the
// google/nftables netlink library. Profile scoping has no Linux analogue
// and is ignored.
type NftablesStore struct {
	logger *slog.Logger
}

// NewNftablesStore returns a Store backed by nftables.
func NewNftablesStore(logger *slog.Logger) (Store, error) {
	return &NftablesStore{logger: logger.With("component", "firewall")}, nil
}

func (s *NftablesStore) EnsureRule(_ context.Context, spec RuleSpec) error {
	conn, err := nftables.New()
	if err != nil {
		return fmt.Errorf("firewall: nftables: ensure rule: %w", err)
	}

	table := conn.AddTable(&nftables.Table{
		Family: nftables.TableFamilyIPv4,
		Name:   filterTableName,
	})
	chain := conn.AddChain(&nftables.Chain{
		Name:     inputChainName,
		Table:    table,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookInput,
		Priority: nftables.ChainPriorityFilter,
	})

	// nft equivalent: tcp dport <port> counter accept
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
				Data:     allowPortBytes(uint16(spec.Port)),
			},
			&expr.Counter{},
			&expr.Verdict{Kind: expr.VerdictAccept},
		},
	})

	if err := conn.Flush(); err != nil {
		return fmt.Errorf("firewall: nftables: ensure rule for port %d: %w", spec.Port, err)
	}

	if len(spec.Profiles) > 0 {
		s.logger.Debug("profiles have no nftables analogue, ignored",
			"rule", spec.Name,
		)
	}
	s.logger.Debug("accept rule installed", "port", spec.Port)
	return nil
}

// DeleteRule removes the accept rules matching the spec's port. It is
// idempotent: a missing table, chain, or rule returns nil.
func (s *NftablesStore) DeleteRule(_ context.Context, spec RuleSpec) error {
	conn, err := nftables.New()
	if err != nil {
		return fmt.Errorf("firewall: nftables: delete rule: %w", err)
	}

	table, chain, err := findFilterChain(conn)
	if err != nil {
		return fmt.Errorf("firewall: nftables: delete rule: %w", err)
	}
	if chain == nil {
		return nil
	}

	rules, err := conn.GetRules(table, chain)
	if err != nil {
		return fmt.Errorf("firewall: nftables: delete rule: list rules: %w", err)
	}

	deleted := false
	for _, rule := range rules {
		port, ok := acceptRulePort(rule)
		if !ok || int(port) != spec.Port {
			continue
		}
		if err := conn.DelRule(rule); err != nil {
			return fmt.Errorf("firewall: nftables: delete rule for port %d: %w", spec.Port, err)
		}
		deleted = true
	}
	if !deleted {
		return nil
	}

	if err := conn.Flush(); err != nil {
		return fmt.Errorf("firewall: nftables: delete rule for port %d: %w", spec.Port, err)
	}

	s.logger.Debug("accept rule removed", "port", spec.Port)
	return nil
}

// findFilterChain locates the store's table and chain. A nil chain with nil
// error means they do not exist yet.
func findFilterChain(conn *nftables.Conn) (*nftables.Table, *nftables.Chain, error) {
	tables, err := conn.ListTablesOfFamily(nftables.TableFamilyIPv4)
	if err != nil {
		return nil, nil, fmt.Errorf("list tables: %w", err)
	}

	var table *nftables.Table
	for _, t := range tables {
		if t.Name == filterTableName {
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
		if ch.Table.Name == filterTableName && ch.Name == inputChainName {
			return table, ch, nil
		}
	}
	return table, nil, nil
}

// acceptRulePort decodes the destination port of an accept rule written by
// EnsureRule. Rules not matching that shape are reported as not ok.
func acceptRulePort(rule *nftables.Rule) (uint16, bool) {
	var port uint16
	accepts := false

	for _, ex := range rule.Exprs {
		switch v := ex.(type) {
		case *expr.Cmp:
			if len(v.Data) == 2 {
				port = binary.BigEndian.Uint16(v.Data)
			}
		case *expr.Verdict:
			if v.Kind == expr.VerdictAccept {
				accepts = true
			}
		}
	}

	if !accepts || port == 0 {
		return 0, false
	}
	return port, true
}

// allowPortBytes encodes a port number as 2 big-endian bytes for nftables matching.
func allowPortBytes(port uint16) []byte {
	return []byte{byte(port >> 8), byte(port)}
}
